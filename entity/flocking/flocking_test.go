package flocking_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/flocking"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/spatial"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
)

func place(id int32, t entity.VehicleType, p, vel orb.Point) *vehicle.Vehicle {
	v := vehicle.New(id, t, entity.DefaultFlockingWeights())
	v.Place([]int32{0, 1}, p, entity.Heading(vel))
	v.Velocity = vel
	v.Speed = entity.Norm(vel)
	return v
}

func neighbors(t *testing.T, self *vehicle.Vehicle, others ...*vehicle.Vehicle) []spatial.Neighbor {
	idx := spatial.New(10)
	idx.Rebuild(0, append([]*vehicle.Vehicle{self}, others...))
	ns := idx.NeighborsOf(self, 50)
	require.Len(t, ns, len(others))
	return ns
}

func TestNoNeighbors(t *testing.T) {
	v := place(1, entity.Sedan, orb.Point{0, 0}, orb.Point{5, 1})
	s := flocking.ComputeSteering(v, nil, entity.DefaultFlockingWeights())
	assert.Equal(t, v.Velocity, s.Desired)
	assert.Equal(t, orb.Point{}, s.Force)
}

func TestSeparationRepulsive(t *testing.T) {
	for _, typ := range entity.VehicleTypes {
		v := place(1, typ, orb.Point{0, 0}, orb.Point{0, 0})
		other := place(2, entity.Sedan, orb.Point{2, 1}, orb.Point{0, 0})
		w := entity.FlockingWeights{Separation: 1.5, PerceptionRadius: 30}
		s := flocking.ComputeSteering(v, neighbors(t, v, other), w)

		away := entity.Sub(v.Position, other.Position)
		assert.Greater(t, entity.Norm(s.Separation), 0., typ.String())
		assert.Greater(t, s.Separation[0]*away[0]+s.Separation[1]*away[1], 0., typ.String())
		assert.Greater(t, s.Force[0]*away[0]+s.Force[1]*away[1], 0., typ.String())
	}
}

func TestSeparationCoincident(t *testing.T) {
	v := place(1, entity.Sedan, orb.Point{0, 0}, orb.Point{3, 0})
	other := place(2, entity.Sedan, orb.Point{0, 0}, orb.Point{3, 0})
	s := flocking.ComputeSteering(v, neighbors(t, v, other), entity.DefaultFlockingWeights())
	// 重合时沿自身朝向的反方向推开
	assert.Less(t, s.Separation[0], 0.)
	assert.InDelta(t, 0, s.Separation[1], 1e-9)
}

func TestSeparationOutsideMinimum(t *testing.T) {
	v := place(1, entity.Sedan, orb.Point{0, 0}, orb.Point{0, 0})
	d := flocking.MinSeparation(4.5, 4.5) + 1
	other := place(2, entity.Sedan, orb.Point{d, 0}, orb.Point{0, 0})
	s := flocking.ComputeSteering(v, neighbors(t, v, other), entity.DefaultFlockingWeights())
	assert.Equal(t, orb.Point{}, s.Separation)
	// 聚合力指向邻居，大小为最大速度的10%
	assert.InDelta(t, 0.1*v.Profile.MaxSpeed, s.Cohesion[0], 1e-9)
}

func TestAlignment(t *testing.T) {
	v := place(1, entity.Sedan, orb.Point{0, 0}, orb.Point{2, 0})
	a := place(2, entity.Sedan, orb.Point{20, 0}, orb.Point{4, 2})
	b := place(3, entity.Sedan, orb.Point{0, 20}, orb.Point{6, -2})
	s := flocking.ComputeSteering(v, neighbors(t, v, a, b), entity.DefaultFlockingWeights())
	assert.InDelta(t, 0.3, s.Alignment[0], 1e-9)
	assert.InDelta(t, 0, s.Alignment[1], 1e-9)
}

func TestDesiredCapped(t *testing.T) {
	v := place(1, entity.Auto, orb.Point{0, 0}, orb.Point{13, 0})
	a := place(2, entity.Sedan, orb.Point{30, 0}, orb.Point{30, 0})
	w := entity.FlockingWeights{Cohesion: 50, Alignment: 50, Separation: 50, PerceptionRadius: 50}
	s := flocking.ComputeSteering(v, neighbors(t, v, a), w)
	assert.LessOrEqual(t, entity.Norm(s.Desired), v.Profile.MaxSpeed+1e-9)
	assert.InDelta(t, 5., entity.Norm(flocking.CapSpeed(orb.Point{30, 40}, 5)), 1e-9)
	assert.Equal(t, orb.Point{3, 4}, flocking.CapSpeed(orb.Point{3, 4}, 5))
}

func TestEffectiveWeights(t *testing.T) {
	w := entity.FlockingWeights{Cohesion: 1, Alignment: 1, Separation: 1, PerceptionRadius: 10}
	assert.Equal(t, w, flocking.EffectiveWeights(w, entity.BehaviorNormal))

	aggressive := flocking.EffectiveWeights(w, entity.BehaviorAggressive)
	assert.Less(t, aggressive.Cohesion, 1.)
	assert.Less(t, aggressive.Alignment, 1.)
	assert.InDelta(t, 1.5, aggressive.Separation, 1e-9)
	assert.InDelta(t, 7, aggressive.PerceptionRadius, 1e-9)

	conservative := flocking.EffectiveWeights(w, entity.BehaviorConservative)
	assert.Greater(t, conservative.Cohesion, 1.)
	assert.Greater(t, conservative.Alignment, 1.)
	assert.Greater(t, conservative.Separation, 1.)
	assert.InDelta(t, 13, conservative.PerceptionRadius, 1e-9)
	assert.False(t, math.IsNaN(conservative.Cohesion))
}
