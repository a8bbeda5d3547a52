package road

import (
	"math"

	"github.com/tsinghua-fib-lab/flocksim-go/entity"
)

const (
	greenRatio  = 0.45 // 绿灯占周期比例
	yellowRatio = 0.10 // 黄灯占周期比例，其余为红灯
)

// TrafficLight 单点固定周期信号灯
// 功能：按照 绿→黄→红 的固定顺序循环，计时器每步推进dt
// 说明：周期在路网生成时随机确定，计时器初值随机以错开各路口的相位
type TrafficLight struct {
	Cycle float64 // 周期时长（秒）
	Timer float64 // 当前周期内已经过的时间（秒），取值[0, Cycle)
}

// NewTrafficLight 创建信号灯，offset为初始计时
func NewTrafficLight(cycle, offset float64) *TrafficLight {
	if cycle <= 0 {
		log.Panicf("traffic light: cycle must be positive, got %v", cycle)
	}
	return &TrafficLight{
		Cycle: cycle,
		Timer: math.Mod(math.Max(offset, 0), cycle),
	}
}

// Update 推进计时器
func (l *TrafficLight) Update(dt float64) {
	l.Timer = math.Mod(l.Timer+dt, l.Cycle)
}

// State 当前灯色
func (l *TrafficLight) State() entity.LightState {
	switch t := l.Timer / l.Cycle; {
	case t < greenRatio:
		return entity.LightGreen
	case t < greenRatio+yellowRatio:
		return entity.LightYellow
	default:
		return entity.LightRed
	}
}

// Remaining 当前灯色剩余时间（秒）
func (l *TrafficLight) Remaining() float64 {
	var end float64
	switch l.State() {
	case entity.LightGreen:
		end = greenRatio * l.Cycle
	case entity.LightYellow:
		end = (greenRatio + yellowRatio) * l.Cycle
	default:
		end = l.Cycle
	}
	return end - l.Timer
}
