package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/flocksim-go/clock"
)

func TestClock(t *testing.T) {
	c := clock.New(0.1, 1.0)
	assert.Equal(t, int64(10), c.END_STEP)
	for i := 0; i < 9; i++ {
		c.Tick()
		assert.False(t, c.Done())
	}
	c.Tick()
	assert.True(t, c.Done())
	assert.InDelta(t, 1.0, c.T, 1e-12)
	assert.Equal(t, 1., c.Progress())

	c.Init()
	assert.Zero(t, c.Step)

	c = clock.New(0.1, 3725.5)
	for !c.Done() {
		c.Tick()
	}
	assert.Equal(t, "01:02:05", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.InDelta(t, 5.5, s, 1e-6)

	assert.Panics(t, func() { clock.New(0, 1) })
}

func TestClockEndStep(t *testing.T) {
	for _, c := range []struct {
		dt, duration float64
		steps        int64
	}{
		{0.1, 0.04, 1},
		{0.1, 0.3, 3},
		{0.1, 0.7, 7},
		{0.1, 1.05, 11},
		{0.25, 1, 4},
		{0.1, 300, 3000},
	} {
		clk := clock.New(c.dt, c.duration)
		assert.Equal(t, c.steps, clk.END_STEP, "dt=%v duration=%v", c.dt, c.duration)
		for !clk.Done() {
			clk.Tick()
		}
		assert.GreaterOrEqual(t, clk.T, c.duration-1e-9)
		assert.Less(t, clk.T-c.duration, c.dt)
	}
}

func TestSyncScheduler(t *testing.T) {
	s := clock.NewSyncScheduler()
	count := 0
	var step func()
	step = func() {
		count++
		if count < 5 {
			s.ScheduleNext(step)
		}
	}
	s.ScheduleNext(step)
	assert.Equal(t, 5, s.Run())
	assert.Equal(t, 5, count)

	s.ScheduleNext(func() { s.Cancel() })
	s.ScheduleNext(func() { count++ })
	assert.Equal(t, 1, s.Run())
	assert.Equal(t, 5, count)

	s.ScheduleNext(func() { count++ })
	assert.Zero(t, s.Run())
}

func TestTimerScheduler(t *testing.T) {
	s := clock.NewTimerScheduler(time.Millisecond)
	var count atomic.Int32
	done := make(chan struct{})
	var step func()
	step = func() {
		if count.Add(1) == 3 {
			close(done)
			return
		}
		s.ScheduleNext(step)
	}
	s.ScheduleNext(step)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timer scheduler did not run")
	}
	assert.Equal(t, int32(3), count.Load())

	s.Cancel()
	s.ScheduleNext(func() { count.Add(1) })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), count.Load())
}
