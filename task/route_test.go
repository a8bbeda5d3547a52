package task

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/flocksim-go/clock"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
)

func line(t *testing.T) *road.Network {
	n := road.NewNetwork()
	require.NoError(t, n.AddNode(road.Node{ID: 0, Position: orb.Point{0, 0}, Kind: entity.NodeEntry}))
	require.NoError(t, n.AddNode(road.Node{ID: 1, Position: orb.Point{100, 0}}))
	require.NoError(t, n.AddNode(road.Node{ID: 2, Position: orb.Point{200, 0}, Kind: entity.NodeExit}))
	require.NoError(t, n.AddEdges(
		road.Edge{ID: 0, From: 0, To: 1, SpeedLimit: 10},
		road.Edge{ID: 1, From: 1, To: 2, SpeedLimit: 10},
	))
	return n
}

func TestDecideMissingNode(t *testing.T) {
	for name, route := range map[string][]int32{
		"missing target":  {0, 99, 2},
		"missing current": {99, 1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			scheduler := clock.NewSyncScheduler()
			s := New(SimulationConfig{
				Fleet:    map[entity.VehicleType]int{entity.Sedan: 1},
				Duration: 0.1,
				Seed:     1,
			}, line(t), scheduler)
			require.NoError(t, s.Start())
			v := s.vehicles[0]
			v.Route = route
			v.Position = orb.Point{30, 0}

			p := s.decide(v)
			assert.True(t, p.respawn)
			assert.ErrorIs(t, p.reason, entity.ErrStateInconsistency)

			assert.Equal(t, 1, scheduler.Run())
			assert.Equal(t, StatusCompleted, s.Status())
			assert.Equal(t, []int32{0, 1, 2}, v.Route)
			assert.Equal(t, 0, v.RouteIndex)
			assert.Equal(t, orb.Point{0, 0}, v.Position)
			assert.Equal(t, int32(0), v.Trips)
			assert.Equal(t, 0, s.completedTrips)
		})
	}
}

func TestDecideRouteFinished(t *testing.T) {
	s := New(SimulationConfig{
		Fleet:    map[entity.VehicleType]int{entity.Sedan: 1},
		Duration: 1,
		Seed:     1,
	}, line(t), clock.NewSyncScheduler())
	require.NoError(t, s.Start())
	v := s.vehicles[0]
	v.RouteIndex = len(v.Route) - 1
	p := s.decide(v)
	assert.True(t, p.respawn)
	assert.NoError(t, p.reason)
}
