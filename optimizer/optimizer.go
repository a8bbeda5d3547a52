// 集群权重的启发式调节器
// 用一个小型对称反馈矩阵把交通密度与平均速度映射为三种集群力权重的修正量，并随仿真指标缓慢漂移
package optimizer

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

const (
	stateSize = 4 // 状态向量维数 [d, s, 1-d, 1-s]

	initOffDiagonalMax = 0.3   // 非对角元初值上限
	termGain           = 0.3   // 干涉项对权重的影响系数
	learningRate       = 0.01  // 学习步长
	flowBaseline       = 0.5   // 流量比基准

	ReferenceSpeed = 16.67 // 速度归一化基准（米/秒，约60千米/小时）
	MinWeight      = 0.5   // 权重下限
	MaxWeight      = 3.0   // 权重上限
)

// Adjuster 权重调节器（非线程安全，只在仿真主循环中使用）
type Adjuster struct {
	matrix [stateSize][stateSize]float64
}

// New 创建调节器
// 算法说明：对角元为1，非对角元在[0, 0.3)内随机并保持对称
func New(engine *randengine.Engine) *Adjuster {
	a := &Adjuster{}
	for i := 0; i < stateSize; i++ {
		a.matrix[i][i] = 1
		for j := i + 1; j < stateSize; j++ {
			v := engine.Uniform(0, initOffDiagonalMax)
			a.matrix[i][j], a.matrix[j][i] = v, v
		}
	}
	return a
}

// Matrix 反馈矩阵的拷贝
func (a *Adjuster) Matrix() [stateSize][stateSize]float64 {
	return a.matrix
}

func normalize(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return lo.Clamp(x, 0, 1)
}

// Adjust 计算调节后的权重
// 参数：base-基础权重，density-交通密度（占用率，超过1按1计），avgSpeed-平均速度（米/秒）
// 返回：调节后的权重，三种力的权重均在[MinWeight, MaxWeight]内，感知半径不变
// 算法说明：
// 1. 状态向量 [d, s, 1-d, 1-s] 左乘反馈矩阵
// 2. 第i维映射为干涉项 sin(out[i]·π + i·π/4)·0.5
// 3. 权重乘以 (1 + 干涉项·0.3) 后截断
func (a *Adjuster) Adjust(base entity.FlockingWeights, density, avgSpeed float64) entity.FlockingWeights {
	d := normalize(density)
	s := normalize(avgSpeed / ReferenceSpeed)
	state := [stateSize]float64{d, s, 1 - d, 1 - s}
	var out [stateSize]float64
	for i := range out {
		for j := range state {
			out[i] += a.matrix[i][j] * state[j]
		}
	}
	term := func(i int) float64 {
		return math.Sin(out[i]*math.Pi+float64(i)*math.Pi/4) * 0.5
	}
	scale := func(w float64, i int) float64 {
		return lo.Clamp(w*(1+term(i)*termGain), MinWeight, MaxWeight)
	}
	return entity.FlockingWeights{
		Cohesion:         scale(base.Cohesion, 0),
		Alignment:        scale(base.Alignment, 1),
		Separation:       scale(base.Separation, 2),
		PerceptionRadius: base.PerceptionRadius,
	}
}

// Learn 根据仿真指标漂移非对角元
// 参数：flow-归一化流量（平均速度/参考速度），congestion-拥堵度[0,1]
// 说明：非对角元统一加上 (flow/(congestion+1) - 0.5)·0.01 并截断到[0,1]，保持对称，不保证收敛
func (a *Adjuster) Learn(flow, congestion float64) {
	delta := (flow/(congestion+1) - flowBaseline) * learningRate
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		log.Warnf("skip learning with invalid delta: flow=%v congestion=%v", flow, congestion)
		return
	}
	for i := 0; i < stateSize; i++ {
		for j := i + 1; j < stateSize; j++ {
			v := lo.Clamp(a.matrix[i][j]+delta, 0, 1)
			a.matrix[i][j], a.matrix[j][i] = v, v
		}
	}
}
