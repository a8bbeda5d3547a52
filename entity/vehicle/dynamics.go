package vehicle

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
)

const (
	stopEpsilon      = 0.1 // 速度低于该值视为停车（米/秒）
	changeEpsilon    = 1e-6
	lateralComfortA  = 3.0     // 舒适横向加速度（米/秒²）
	lowSpeedTurning  = 0.5     // 低于该速度时放宽转向限制（米/秒）
	lowSpeedTurnRate = math.Pi // 低速时的最大转向角速度（弧度/秒）
	brakingMargin    = 2.0     // 制动安全余量（米）

	idleFuelFactor    = 0.1  // 怠速油耗倍率
	efficientSpeedKmh = 55.0 // 最经济车速（千米/小时）
	speedFuelPenalty  = 0.5  // 偏离经济车速的油耗惩罚系数
	accFuelPenalty    = 0.3  // 单位加速度的油耗惩罚系数
)

// TargetSpeed 车辆在路段上的目标速度
// 参数：limit-路段限速，不大于0时表示不限速；friction-天气摩擦系数
// 说明：天气只限制目标速度，不影响加减速能力
func (p Profile) TargetSpeed(limit, friction float64) float64 {
	v := p.MaxSpeed
	if limit > 0 {
		v = math.Min(v, limit)
	}
	return v * lo.Clamp(friction, 0, 1)
}

// maxFeasibleAcceleration 考虑二次阻力后的可用加速度
func (p Profile) maxFeasibleAcceleration(speed float64) float64 {
	drag := p.DragCoefficient * speed * speed / p.Mass
	return math.Max(0, p.MaxAcceleration-drag)
}

// maxTurnRate 当前速度下允许的最大转向角速度
// 算法说明：取 舒适横向加速度/速度 与 速度/转弯半径 中较小者，低速时放宽为固定值以便原地调头
func (p Profile) maxTurnRate(speed float64) float64 {
	if speed < lowSpeedTurning {
		return lowSpeedTurnRate
	}
	return math.Min(lateralComfortA/speed, speed/p.TurningRadius)
}

// Integrate 车辆运动学积分
// 功能：按期望速度与期望朝向推进一个时间步，更新速度、朝向、位置、状态与油耗
// 参数：desiredSpeed-期望速度，desiredHeading-期望朝向，dt-时间步长
// 算法说明：
// 1. 速度变化量限制在[-制动·dt, 可用加速度·dt]内，速度限制在[0, 最大速度]
// 2. 朝向以受限角速度转向期望朝向
// 3. 位置按新速度向量积分，累计行驶距离、油耗与停车等待时间
func (v *Vehicle) Integrate(desiredSpeed, desiredHeading, dt float64) {
	if dt <= 0 {
		log.Panicf("vehicle %d: non-positive dt %v", v.ID, dt)
	}
	p := &v.Profile
	desiredSpeed = lo.Clamp(desiredSpeed, 0, p.MaxSpeed)
	dv := lo.Clamp(desiredSpeed-v.Speed, -p.MaxBraking*dt, p.maxFeasibleAcceleration(v.Speed)*dt)
	speed := lo.Clamp(v.Speed+dv, 0, p.MaxSpeed)
	switch {
	case speed < stopEpsilon && dv <= 0:
		v.State = entity.StateStopped
	case dv > changeEpsilon:
		v.State = entity.StateAccelerating
	case dv < -changeEpsilon:
		v.State = entity.StateBraking
	default:
		v.State = entity.StateMoving
	}

	maxTurn := p.maxTurnRate(speed) * dt
	turn := lo.Clamp(entity.NormalizeAngle(desiredHeading-v.Heading), -maxTurn, maxTurn)
	v.Heading = entity.NormalizeAngle(v.Heading + turn)

	velocity := entity.Polar(speed, v.Heading)
	v.Acceleration = entity.Scale(entity.Sub(velocity, v.Velocity), 1/dt)
	v.Velocity = velocity
	v.Speed = speed
	v.Position = entity.Add(v.Position, entity.Scale(velocity, dt))
	v.Distance += speed * dt
	v.FuelConsumed += p.FuelConsumption(speed, math.Abs(dv/dt), v.State == entity.StateStopped, dt)
	if v.State == entity.StateStopped {
		v.WaitTime += dt
	}
}

// ApplyBraking 接近停车点时的制动
// 功能：当制动距离 速度²/(2·最大制动) 进入停车点前的安全余量内时，本步以最大减速度制动
// 参数：stopDistance-到停车点的距离，dt-时间步长
// 返回：braking-本步是否执行了制动（未执行时由调用方正常积分），stopped-是否已完全停车
func (v *Vehicle) ApplyBraking(stopDistance, dt float64) (braking, stopped bool) {
	brakingDistance := v.Speed * v.Speed / (2 * v.Profile.MaxBraking)
	if brakingDistance < stopDistance-brakingMargin {
		return false, false
	}
	v.Integrate(0, v.Heading, dt)
	return true, v.Speed < stopEpsilon
}

// FuelConsumption 一个时间步的油耗（升）
// 算法说明：基础油耗×车速效率曲线×(1+加速度惩罚)，停车时按怠速倍率计算，结果恒为非负
func (p Profile) FuelConsumption(speed, acc float64, stopped bool, dt float64) float64 {
	if stopped {
		return p.FuelRate * idleFuelFactor * dt
	}
	kmh := speed / entity.KmhToMs
	deviation := (kmh - efficientSpeedKmh) / efficientSpeedKmh
	efficiency := 1 + speedFuelPenalty*deviation*deviation
	return math.Max(0, p.FuelRate*efficiency*(1+accFuelPenalty*math.Abs(acc))*dt)
}

// UpdateETA 以剩余路径长度估计到达时间
func (v *Vehicle) UpdateETA(remaining float64) {
	v.ETA = remaining / math.Max(v.Speed, 1)
}
