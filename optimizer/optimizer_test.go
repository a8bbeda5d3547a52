package optimizer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/optimizer"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

func assertSymmetric(t *testing.T, a *optimizer.Adjuster) {
	m := a.Matrix()
	for i := range m {
		assert.Equal(t, 1., m[i][i])
		for j := range m[i] {
			assert.Equal(t, m[i][j], m[j][i])
			if i != j {
				assert.GreaterOrEqual(t, m[i][j], 0.)
				assert.LessOrEqual(t, m[i][j], 1.)
			}
		}
	}
}

func TestNewMatrix(t *testing.T) {
	a := optimizer.New(randengine.New(1))
	assertSymmetric(t, a)
	m := a.Matrix()
	for i := range m {
		for j := range m[i] {
			if i != j {
				assert.Less(t, m[i][j], 0.3)
			}
		}
	}
}

func TestAdjustWeightClamp(t *testing.T) {
	engine := randengine.New(2)
	a := optimizer.New(engine)
	bases := []entity.FlockingWeights{
		entity.DefaultFlockingWeights(),
		{Cohesion: 0, Alignment: 0.1, Separation: 100, PerceptionRadius: 30},
		{Cohesion: 2.9, Alignment: 3, Separation: 0.5, PerceptionRadius: 10},
	}
	inputs := []float64{0, 0.3, 1, 5, 1e6, math.Inf(1)}
	for _, base := range bases {
		for _, density := range inputs {
			for _, speed := range inputs {
				w := a.Adjust(base, density, speed)
				for _, x := range []float64{w.Cohesion, w.Alignment, w.Separation} {
					assert.GreaterOrEqual(t, x, optimizer.MinWeight)
					assert.LessOrEqual(t, x, optimizer.MaxWeight)
				}
				assert.Equal(t, base.PerceptionRadius, w.PerceptionRadius)
			}
		}
	}
	for i := 0; i < 1000; i++ {
		w := a.Adjust(entity.DefaultFlockingWeights(), engine.Uniform(0, 10), engine.Uniform(0, 50))
		assert.GreaterOrEqual(t, w.Separation, optimizer.MinWeight)
		assert.LessOrEqual(t, w.Separation, optimizer.MaxWeight)
	}
}

func TestAdjustDeterministic(t *testing.T) {
	a := optimizer.New(randengine.New(3))
	b := optimizer.New(randengine.New(3))
	base := entity.DefaultFlockingWeights()
	assert.Equal(t, a.Adjust(base, 0.4, 10), b.Adjust(base, 0.4, 10))
}

func TestLearnBounds(t *testing.T) {
	a := optimizer.New(randengine.New(4))
	for i := 0; i < 500; i++ {
		a.Learn(1, 0)
	}
	assertSymmetric(t, a)
	assert.Equal(t, 1., a.Matrix()[0][1])

	for i := 0; i < 500; i++ {
		a.Learn(0, 1)
	}
	assertSymmetric(t, a)
	assert.Equal(t, 0., a.Matrix()[0][1])

	before := a.Matrix()
	a.Learn(math.NaN(), 0)
	assert.Equal(t, before, a.Matrix())
}
