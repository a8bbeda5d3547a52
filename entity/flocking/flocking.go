// 集群（boids）转向策略：根据邻居计算聚合、对齐、分离三种转向力
package flocking

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/spatial"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
)

const (
	cohesionSpeedRatio = 0.1  // 聚合力大小占最大速度的比例
	alignmentGain      = 0.1  // 对齐力增益
	separationGain     = 2.0  // 分离力增益
	separationScale    = 0.75 // 最小间距中车长之和的缩放
	separationMargin   = 1.0  // 最小间距的附加余量（米）
)

// behaviorFactor 驾驶行为对三种力与感知半径的修正
type behaviorFactor struct {
	cohesion, alignment, separation, radius float64
}

func factorOf(b entity.Behavior) behaviorFactor {
	switch b {
	case entity.BehaviorAggressive:
		return behaviorFactor{cohesion: 0.5, alignment: 0.7, separation: 1.5, radius: 0.7}
	case entity.BehaviorConservative:
		return behaviorFactor{cohesion: 1.2, alignment: 1.2, separation: 1.2, radius: 1.3}
	default:
		return behaviorFactor{cohesion: 1, alignment: 1, separation: 1, radius: 1}
	}
}

// EffectiveWeights 按驾驶行为修正后的权重与感知半径
func EffectiveWeights(w entity.FlockingWeights, b entity.Behavior) entity.FlockingWeights {
	f := factorOf(b)
	return entity.FlockingWeights{
		Cohesion:         w.Cohesion * f.cohesion,
		Alignment:        w.Alignment * f.alignment,
		Separation:       w.Separation * f.separation,
		PerceptionRadius: w.PerceptionRadius * f.radius,
	}
}

// MinSeparation 两辆车之间的最小间距
func MinSeparation(lengthA, lengthB float64) float64 {
	return (lengthA+lengthB)*separationScale + separationMargin
}

// Steering 转向计算结果
type Steering struct {
	Cohesion   orb.Point // 未加权的聚合力
	Alignment  orb.Point // 未加权的对齐力
	Separation orb.Point // 未加权的分离力
	Force      orb.Point // 加权合力
	Desired    orb.Point // 期望速度=当前速度+合力，大小不超过最大速度
}

// ComputeSteering 计算集群转向
// 功能：由邻居集合计算三种力并按（行为修正后的）权重合成期望速度
// 参数：v-车辆，neighbors-感知半径内的邻居，w-车辆自身的集群权重（未经行为修正）
// 返回：转向结果；没有邻居时期望速度等于当前速度
// 算法说明：
// 1. 聚合：指向邻居位置质心，大小为最大速度的10%
// 2. 对齐：邻居平均速度与自身速度之差乘以0.1
// 3. 分离：对距离小于最小间距的邻居，沿远离方向施加(minSep-d)/minSep的斥力，求和后乘以2；重合时沿自身朝向的反方向
func ComputeSteering(v *vehicle.Vehicle, neighbors []spatial.Neighbor, w entity.FlockingWeights) Steering {
	s := Steering{Desired: v.Velocity}
	if len(neighbors) == 0 {
		return s
	}
	var centroid, avgVelocity orb.Point
	for _, n := range neighbors {
		centroid = entity.Add(centroid, n.Position)
		avgVelocity = entity.Add(avgVelocity, n.Velocity)

		minSep := MinSeparation(v.Profile.Length, n.Length)
		if n.Distance >= minSep {
			continue
		}
		var away orb.Point
		if n.Distance > 0 {
			away = entity.Normalize(entity.Sub(v.Position, n.Position))
		} else {
			away = entity.Polar(1, v.Heading+math.Pi)
		}
		s.Separation = entity.Add(s.Separation, entity.Scale(away, (minSep-n.Distance)/minSep))
	}
	k := 1 / float64(len(neighbors))
	centroid = entity.Scale(centroid, k)
	avgVelocity = entity.Scale(avgVelocity, k)

	s.Cohesion = entity.Scale(entity.Normalize(entity.Sub(centroid, v.Position)), cohesionSpeedRatio*v.Profile.MaxSpeed)
	s.Alignment = entity.Scale(entity.Sub(avgVelocity, v.Velocity), alignmentGain)
	s.Separation = entity.Scale(s.Separation, separationGain)

	ew := EffectiveWeights(w, v.Profile.Behavior)
	s.Force = entity.Add(entity.Add(
		entity.Scale(s.Cohesion, ew.Cohesion),
		entity.Scale(s.Alignment, ew.Alignment)),
		entity.Scale(s.Separation, ew.Separation),
	)
	s.Desired = CapSpeed(entity.Add(v.Velocity, s.Force), v.Profile.MaxSpeed)
	return s
}

// CapSpeed 将速度向量的大小限制在maxSpeed以内
func CapSpeed(velocity orb.Point, maxSpeed float64) orb.Point {
	if n := entity.Norm(velocity); n > maxSpeed {
		return entity.Scale(velocity, maxSpeed/n)
	}
	return velocity
}
