package road_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// square 0-1-2-3 四个节点围成的正方形，边长100米
func square(t *testing.T) *road.Network {
	n := road.NewNetwork()
	kinds := []entity.NodeKind{entity.NodeEntry, entity.NodeIntersection, entity.NodeExit, entity.NodeIntersection}
	points := []orb.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	for i := range points {
		require.NoError(t, n.AddNode(road.Node{ID: int32(i), Position: points[i], Kind: kinds[i]}))
	}
	for i := range points {
		require.NoError(t, n.AddEdges(road.Edge{
			ID:            int32(i),
			From:          int32(i),
			To:            int32((i + 1) % 4),
			SpeedLimit:    50 * entity.KmhToMs,
			Bidirectional: true,
		}))
	}
	return n
}

func TestSquareNetwork(t *testing.T) {
	n := square(t)
	assert.NoError(t, n.Validate())
	assert.Equal(t, []int32{1, 3}, n.Neighbors(0))
	assert.Equal(t, []int32{0}, n.NodesOfKind(entity.NodeEntry))
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}, n.Bounds())

	e, ok := n.Edge(1, 0)
	require.True(t, ok)
	assert.Equal(t, int32(0), e.ID)
	assert.InDelta(t, 100, e.Length, 1e-9)
	assert.Equal(t, int32(1), e.Lanes)

	route, err := n.FindShortestPath(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2}, route)
	assert.InDelta(t, 200, n.RouteLength(route, 0), 1e-9)
	assert.InDelta(t, 100, n.RouteLength(route, 1), 1e-9)
}

func TestFindShortestPathEdgeCases(t *testing.T) {
	n := square(t)

	route, err := n.FindShortestPath(3, 3)
	require.NoError(t, err)
	assert.Equal(t, []int32{3}, route)

	_, err = n.FindShortestPath(0, 42)
	assert.ErrorIs(t, err, entity.ErrPathNotFound)

	// 单向路段：4 -> 0 可达，0 -> 4 不可达
	require.NoError(t, n.AddNode(road.Node{ID: 4, Position: orb.Point{-100, 0}, Kind: entity.NodeEntry}))
	require.NoError(t, n.AddEdges(road.Edge{ID: 4, From: 4, To: 0}))
	route, err = n.FindShortestPath(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 0, 1, 2}, route)
	_, err = n.FindShortestPath(0, 4)
	assert.ErrorIs(t, err, entity.ErrPathNotFound)
	assert.False(t, n.Reachable(0, 4))
	assert.True(t, n.Reachable(4, 2))
}

func TestAddInvalid(t *testing.T) {
	n := square(t)
	assert.ErrorIs(t, n.AddNode(road.Node{ID: 0}), entity.ErrConfiguration)
	assert.ErrorIs(t, n.AddNode(road.Node{ID: 9, Kind: entity.NodeTrafficLight}), entity.ErrConfiguration)
	assert.ErrorIs(t, n.AddEdges(road.Edge{From: 0, To: 99}), entity.ErrConfiguration)
	assert.ErrorIs(t, n.AddEdges(road.Edge{From: 1, To: 1}), entity.ErrConfiguration)

	empty := road.NewNetwork()
	assert.ErrorIs(t, empty.Validate(), entity.ErrConfiguration)
	require.NoError(t, empty.AddNode(road.Node{ID: 1, Kind: entity.NodeEntry}))
	require.NoError(t, empty.AddNode(road.Node{ID: 2, Position: orb.Point{10, 0}}))
	assert.ErrorIs(t, empty.Validate(), entity.ErrConfiguration)
}

func TestGenerate(t *testing.T) {
	opts := road.DefaultGridOptions()
	n, err := road.Generate(opts, randengine.New(42))
	require.NoError(t, err)
	assert.Len(t, n.Nodes(), 121)
	assert.GreaterOrEqual(t, len(n.Edges()), 220)
	assert.NoError(t, n.Validate())
	assert.Equal(t, 1, n.StronglyConnectedComponents())
	assert.NotEmpty(t, n.NodesOfKind(entity.NodeEntry))
	assert.NotEmpty(t, n.NodesOfKind(entity.NodeExit))
	for _, node := range n.Nodes() {
		assert.Equal(t, node.Kind == entity.NodeTrafficLight, node.Light != nil)
		if node.Light != nil {
			assert.GreaterOrEqual(t, node.Light.Cycle, opts.MinCycle)
			assert.Less(t, node.Light.Cycle, opts.MaxCycle)
		}
	}
	for _, e := range n.Edges() {
		assert.True(t, e.Bidirectional)
		assert.Greater(t, e.SpeedLimit, 0.)
		assert.Greater(t, e.Length, 0.)
	}

	// 相同种子得到相同路网
	again, err := road.Generate(opts, randengine.New(42))
	require.NoError(t, err)
	assert.Equal(t, len(n.Edges()), len(again.Edges()))
	assert.Equal(t, n.NodesOfKind(entity.NodeTrafficLight), again.NodesOfKind(entity.NodeTrafficLight))
}

func TestGenerateTooSmall(t *testing.T) {
	opts := road.DefaultGridOptions()
	opts.Width, opts.Height = 50, 50
	_, err := road.Generate(opts, randengine.New(1))
	assert.ErrorIs(t, err, entity.ErrConfiguration)

	opts.CellSize = 0
	_, err = road.Generate(opts, randengine.New(1))
	assert.ErrorIs(t, err, entity.ErrConfiguration)
}

func TestShortestPathMatchesDijkstra(t *testing.T) {
	n, err := road.Generate(road.DefaultGridOptions(), randengine.New(7))
	require.NoError(t, err)
	g := n.Graph()
	engine := randengine.New(8)
	ids := n.NodeIDs()
	for i := 0; i < 50; i++ {
		from, _ := randengine.Pick(engine, ids)
		to, _ := randengine.Pick(engine, ids)
		route, err := n.FindShortestPath(from, to)
		require.NoError(t, err)
		assert.Equal(t, from, route[0])
		assert.Equal(t, to, route[len(route)-1])
		for j := 0; j+1 < len(route); j++ {
			_, ok := n.Edge(route[j], route[j+1])
			assert.True(t, ok, "route %v uses missing edge %d->%d", route, route[j], route[j+1])
		}
		shortest := path.DijkstraFrom(simple.Node(from), g)
		assert.Equal(t, shortest.WeightTo(int64(to)), float64(len(route)-1))

		again, err := n.FindShortestPath(from, to)
		require.NoError(t, err)
		assert.Equal(t, route, again)
	}
}

func TestTrafficLight(t *testing.T) {
	l := road.NewTrafficLight(60, 0)
	assert.Equal(t, entity.LightGreen, l.State())
	assert.InDelta(t, 27, l.Remaining(), 1e-9)
	l.Update(28)
	assert.Equal(t, entity.LightYellow, l.State())
	l.Update(6)
	assert.Equal(t, entity.LightRed, l.State())
	assert.InDelta(t, 26, l.Remaining(), 1e-9)
	l.Update(26)
	assert.Equal(t, entity.LightGreen, l.State())

	node := road.Node{ID: 1}
	state, remaining := node.LightState()
	assert.Equal(t, entity.LightGreen, state)
	assert.Greater(t, remaining, 1e9)

	n := road.NewNetwork()
	require.NoError(t, n.AddNode(road.Node{ID: 1, Kind: entity.NodeTrafficLight, Light: road.NewTrafficLight(10, 0)}))
	n.UpdateLights(6)
	assert.Equal(t, entity.LightRed, n.Node(1).Light.State())
	assert.Len(t, n.Lights(), 1)
}
