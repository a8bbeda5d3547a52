package spatial_test

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/spatial"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

func scatter(n int, size float64, seed uint64) []*vehicle.Vehicle {
	engine := randengine.New(seed)
	vs := make([]*vehicle.Vehicle, n)
	for i := range vs {
		v := vehicle.New(int32(i), entity.Sedan, entity.DefaultFlockingWeights())
		v.Place([]int32{0, 1}, orb.Point{engine.Uniform(-size, size), engine.Uniform(-size, size)}, 0)
		v.Velocity = orb.Point{engine.Uniform(-5, 5), engine.Uniform(-5, 5)}
		vs[i] = v
	}
	return vs
}

func ids(ns []spatial.Neighbor) []int32 {
	out := make([]int32, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestNeighborsMatchBruteForce(t *testing.T) {
	vs := scatter(300, 200, 11)
	idx := spatial.New(25)
	require.True(t, idx.Rebuild(0, vs))
	for _, radius := range []float64{5, 25, 30, 77.5} {
		for _, v := range vs {
			var want []int32
			for _, o := range vs {
				if o.ID != v.ID && planar.Distance(o.Position, v.Position) <= radius {
					want = append(want, o.ID)
				}
			}
			got := idx.NeighborsOf(v, radius)
			if len(want) == 0 {
				assert.Empty(t, got)
				continue
			}
			assert.Equal(t, want, ids(got), "vehicle %d radius %v", v.ID, radius)
		}
	}
}

func TestNeighborFields(t *testing.T) {
	a := vehicle.New(1, entity.Sedan, entity.DefaultFlockingWeights())
	a.Place([]int32{0, 1}, orb.Point{0, 0}, 0)
	a.Velocity = orb.Point{1, 0}
	b := vehicle.New(2, entity.Bus, entity.DefaultFlockingWeights())
	b.Place([]int32{0, 1}, orb.Point{3, 4}, 0)
	b.Velocity = orb.Point{4, 2}
	// 与a重合的车辆仍是邻居
	c := vehicle.New(3, entity.Bike, entity.DefaultFlockingWeights())
	c.Place([]int32{0, 1}, orb.Point{0, 0}, 0)
	waiting := vehicle.New(4, entity.Bike, entity.DefaultFlockingWeights())

	idx := spatial.New(10)
	idx.Rebuild(1, []*vehicle.Vehicle{a, b, c, waiting})
	assert.Equal(t, 3, idx.Size())

	ns := idx.NeighborsOf(a, 5)
	require.Equal(t, []int32{2, 3}, ids(ns))
	for _, n := range ns {
		if n.ID == 2 {
			assert.InDelta(t, 5, n.Distance, 1e-9)
			assert.Equal(t, orb.Point{3, 2}, n.RelativeVelocity)
			assert.Equal(t, 12., n.Length)
		} else {
			assert.Zero(t, n.Distance)
		}
	}
	assert.Empty(t, idx.NeighborsOf(a, 0))
}

func TestRebuildOncePerTick(t *testing.T) {
	vs := scatter(10, 50, 1)
	idx := spatial.New(10)
	assert.True(t, idx.Stale(5))
	assert.True(t, idx.Rebuild(5, vs))
	assert.False(t, idx.Stale(5))

	// 同一步内再次重建不生效，索引保持该步开始时的快照
	old := vs[0].Position
	vs[0].Position = orb.Point{1000, 1000}
	assert.False(t, idx.Rebuild(5, vs))
	found := false
	for _, n := range idx.NeighborsOf(vs[1], 500) {
		if n.ID == vs[0].ID {
			found = true
			assert.Equal(t, old, n.Position)
		}
	}
	assert.True(t, found)

	assert.True(t, idx.Rebuild(6, vs))
	assert.InDelta(t, 10./100., idx.Density(100), 1e-12)
	assert.Zero(t, idx.Density(0))
}

func TestNeighborsHugeRadius(t *testing.T) {
	near := scatter(200, 150, 5)
	far := vehicle.New(1000, entity.Truck, entity.DefaultFlockingWeights())
	far.Place([]int32{0, 1}, orb.Point{3e6, -2e6}, 0)
	vs := append(near, far)

	idx := spatial.New(1)
	require.True(t, idx.Rebuild(0, vs))
	start := time.Now()
	for _, radius := range []float64{1e3, 1e5, 1e7, 1e12, math.MaxFloat64} {
		for _, v := range vs {
			var want []int32
			for _, o := range vs {
				if o.ID != v.ID && planar.Distance(o.Position, v.Position) <= radius {
					want = append(want, o.ID)
				}
			}
			assert.ElementsMatch(t, want, ids(idx.NeighborsOf(v, radius)), "vehicle %d radius %v", v.ID, radius)
		}
	}
	assert.Less(t, time.Since(start), 5*time.Second)

	pair := scatter(2, 5, 9)
	require.True(t, idx.Rebuild(1, pair))
	got := idx.NeighborsOf(pair[0], 1e9)
	require.Len(t, got, 1)
	assert.Equal(t, pair[1].ID, got[0].ID)

	require.True(t, idx.Rebuild(2, nil))
	assert.Empty(t, idx.NeighborsOf(pair[0], 1e9))
}
