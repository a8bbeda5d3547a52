package vehicle_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

const dt = 0.1

func newMoving(t entity.VehicleType) *vehicle.Vehicle {
	v := vehicle.New(1, t, entity.DefaultFlockingWeights())
	v.Place([]int32{0, 1}, orb.Point{0, 0}, 0)
	return v
}

func TestProfiles(t *testing.T) {
	for _, typ := range entity.VehicleTypes {
		p := vehicle.ProfileOf(typ)
		assert.Greater(t, p.MaxSpeed, 0., typ.String())
		assert.Greater(t, p.MaxAcceleration, 0., typ.String())
		assert.Greater(t, p.MaxBraking, 0., typ.String())
		assert.Greater(t, p.Mass, 0., typ.String())
	}
	rate := func(t entity.VehicleType) float64 { return vehicle.ProfileOf(t).FuelRate }
	assert.Less(t, rate(entity.Bike), rate(entity.Auto))
	assert.Less(t, rate(entity.Auto), rate(entity.Sedan))
	assert.Less(t, rate(entity.Sedan), rate(entity.Bus))
	assert.Less(t, rate(entity.Bus), rate(entity.Truck))

	assert.Equal(t, entity.BehaviorAggressive, vehicle.ProfileOf(entity.Bike).Behavior)
	assert.Equal(t, entity.BehaviorNormal, vehicle.ProfileOf(entity.Sedan).Behavior)
	assert.Panics(t, func() { vehicle.ProfileOf(entity.VehicleType(99)) })
}

func TestTargetSpeed(t *testing.T) {
	p := vehicle.ProfileOf(entity.Sedan)
	assert.InDelta(t, p.MaxSpeed, p.TargetSpeed(0, entity.WeatherClear.Friction()), 1e-9)
	assert.InDelta(t, 10., p.TargetSpeed(10, entity.WeatherClear.Friction()), 1e-9)
	assert.InDelta(t, 7., p.TargetSpeed(10, entity.WeatherRain.Friction()), 1e-9)
	assert.InDelta(t, 8.5, p.TargetSpeed(10, entity.WeatherFog.Friction()), 1e-9)
}

func TestIntegrateAcceleration(t *testing.T) {
	v := newMoving(entity.Sedan)
	v.Integrate(20, 0, dt)
	assert.Equal(t, entity.StateAccelerating, v.State)
	assert.InDelta(t, 0.3, v.Speed, 1e-9)
	assert.InDelta(t, 0.03, v.Position[0], 1e-9)
	assert.InDelta(t, 0.03, v.Distance, 1e-9)
	assert.InDelta(t, 3.0, v.Acceleration[0], 1e-9)

	v.Speed, v.Velocity = 20, orb.Point{20, 0}
	v.Integrate(20, 0, dt)
	assert.Equal(t, entity.StateMoving, v.State)
	v.Integrate(0, 0, dt)
	assert.Equal(t, entity.StateBraking, v.State)
	assert.InDelta(t, 19.2, v.Speed, 1e-9)
}

func TestIntegrateStops(t *testing.T) {
	v := newMoving(entity.Auto)
	v.Speed, v.Velocity = 1, orb.Point{1, 0}
	for i := 0; i < 10; i++ {
		v.Integrate(0, 0, dt)
	}
	assert.Equal(t, entity.StateStopped, v.State)
	assert.Zero(t, v.Speed)
	assert.Greater(t, v.WaitTime, 0.)
}

func TestTurnRateLimit(t *testing.T) {
	v := newMoving(entity.Truck)
	v.Speed, v.Velocity = 10, orb.Point{10, 0}
	v.Integrate(10, math.Pi/2, dt)
	// 10m/s下角速度上限为min(3/10, 10/12)=0.3rad/s
	assert.InDelta(t, 0.03, v.Heading, 1e-9)

	slow := newMoving(entity.Truck)
	slow.Integrate(0, math.Pi/2, dt)
	assert.InDelta(t, math.Pi*dt, slow.Heading, 1e-9)
}

func TestSpeedCapAndFuelMonotonic(t *testing.T) {
	engine := randengine.New(3)
	for _, typ := range entity.VehicleTypes {
		v := newMoving(typ)
		fuel := v.FuelConsumed
		for i := 0; i < 2000; i++ {
			v.Integrate(engine.Uniform(0, 100), engine.Uniform(-math.Pi, math.Pi), dt)
			require.LessOrEqual(t, v.Speed, v.Profile.MaxSpeed+1e-9, typ.String())
			require.GreaterOrEqual(t, v.FuelConsumed, fuel, typ.String())
			require.InDelta(t, v.Speed, math.Hypot(v.Velocity[0], v.Velocity[1]), 1e-9)
			fuel = v.FuelConsumed
		}
	}
}

func TestFuelConsumption(t *testing.T) {
	p := vehicle.ProfileOf(entity.Sedan)
	best := p.FuelConsumption(55*entity.KmhToMs, 0, false, dt)
	assert.InDelta(t, p.FuelRate*dt, best, 1e-12)
	assert.Greater(t, p.FuelConsumption(110*entity.KmhToMs, 0, false, dt), best)
	assert.Greater(t, p.FuelConsumption(20*entity.KmhToMs, 0, false, dt), best)
	assert.Greater(t, p.FuelConsumption(55*entity.KmhToMs, 2, false, dt), best)
	assert.InDelta(t, p.FuelRate*0.1*dt, p.FuelConsumption(0, 0, true, dt), 1e-12)
}

func TestApplyBraking(t *testing.T) {
	v := newMoving(entity.Sedan)
	v.Speed, v.Velocity = 10, orb.Point{10, 0}
	// 制动距离 100/16=6.25m，远离停车点时不制动
	braking, stopped := v.ApplyBraking(50, dt)
	assert.False(t, braking)
	assert.False(t, stopped)
	assert.InDelta(t, 10., v.Speed, 1e-9)

	braking, stopped = v.ApplyBraking(8, dt)
	assert.True(t, braking)
	assert.False(t, stopped)
	assert.InDelta(t, 9.2, v.Speed, 1e-9)
	for i := 0; i < 20 && !stopped; i++ {
		_, stopped = v.ApplyBraking(0, dt)
	}
	assert.True(t, stopped)
	assert.Equal(t, entity.StateStopped, v.State)
}

func TestPlaceKeepsCumulative(t *testing.T) {
	v := newMoving(entity.Bus)
	for i := 0; i < 50; i++ {
		v.Integrate(10, 0, dt)
	}
	fuel, wait := v.FuelConsumed, v.WaitTime
	require.Greater(t, v.Distance, 0.)
	v.Place([]int32{3, 4, 5}, orb.Point{100, 100}, math.Pi)
	assert.Zero(t, v.Distance)
	assert.Zero(t, v.Speed)
	assert.Equal(t, 0, v.RouteIndex)
	assert.Equal(t, fuel, v.FuelConsumed)
	assert.Equal(t, wait, v.WaitTime)
	next, ok := v.NextNode()
	assert.True(t, ok)
	assert.Equal(t, int32(4), next)

	s := v.Snapshot()
	assert.Equal(t, "bus", s.Type)
	assert.Equal(t, 3, s.RouteLength)
	assert.Equal(t, 100., s.X)
}
