package vehicle

import (
	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
)

// Vehicle 仿真车辆
// 功能：保存车辆的运动学状态、路径进度与累计统计量
// 说明：车辆只由所属的仿真循环修改，不做并发保护
type Vehicle struct {
	ID      int32
	Type    entity.VehicleType
	Profile Profile

	Position     orb.Point // 位置（米）
	Velocity     orb.Point // 速度向量（米/秒）
	Acceleration orb.Point // 上一步的加速度向量，仅作记录
	Speed        float64   // 标量速度（米/秒）
	Heading      float64   // 朝向（弧度）
	TargetSpeed  float64   // 当前路段上的目标速度

	Route      []int32 // 途经节点序列
	RouteIndex int     // 当前所在路段的起点在Route中的下标
	Weights    entity.FlockingWeights
	State      entity.VehicleState

	WaitTime     float64 // 累计停车等待时间（秒）
	FuelConsumed float64 // 累计油耗（升），只增不减
	Distance     float64 // 本次行程行驶距离（米），重生时清零
	ETA          float64 // 预计剩余行驶时间（秒）
	Trips        int32   // 已完成的行程数

	// 每步由集群策略写入，由积分使用

	DesiredVelocity orb.Point
	SteeringForce   orb.Point
}

// New 创建车辆，初始处于等待生成状态
func New(id int32, t entity.VehicleType, weights entity.FlockingWeights) *Vehicle {
	return &Vehicle{
		ID:      id,
		Type:    t,
		Profile: ProfileOf(t),
		Weights: weights,
		State:   entity.StateWaiting,
	}
}

// Place 将车辆放到路径起点并设置新路径
// 功能：重置位置、路径进度与行程距离，保留累计油耗与等待时间
func (v *Vehicle) Place(route []int32, start orb.Point, heading float64) {
	v.Route = route
	v.RouteIndex = 0
	v.Position = start
	v.Heading = heading
	v.Speed = 0
	v.Velocity = orb.Point{}
	v.Acceleration = orb.Point{}
	v.Distance = 0
	v.DesiredVelocity = orb.Point{}
	v.SteeringForce = orb.Point{}
	v.State = entity.StateStopped
}

// Waiting 是否处于等待重生状态
func (v *Vehicle) Waiting() bool {
	return v.State == entity.StateWaiting
}

// NextNode 路径上的下一个目标节点，已到终点时ok为false
func (v *Vehicle) NextNode() (id int32, ok bool) {
	if v.RouteIndex+1 >= len(v.Route) {
		return 0, false
	}
	return v.Route[v.RouteIndex+1], true
}

// Snapshot 车辆状态快照，提供给外部观察者
type Snapshot struct {
	ID           int32   `bson:"id" json:"id"`
	Type         string  `bson:"type" json:"type"`
	X            float64 `bson:"x" json:"x"`
	Y            float64 `bson:"y" json:"y"`
	VX           float64 `bson:"vx" json:"vx"`
	VY           float64 `bson:"vy" json:"vy"`
	AX           float64 `bson:"ax" json:"ax"`
	AY           float64 `bson:"ay" json:"ay"`
	Speed        float64 `bson:"speed" json:"speed"`
	Heading      float64 `bson:"heading" json:"heading"`
	TargetSpeed  float64 `bson:"target_speed" json:"target_speed"`
	State        string  `bson:"state" json:"state"`
	RouteIndex   int     `bson:"route_index" json:"route_index"`
	RouteLength  int     `bson:"route_length" json:"route_length"`
	WaitTime     float64 `bson:"wait_time" json:"wait_time"`
	FuelConsumed float64 `bson:"fuel_consumed" json:"fuel_consumed"`
	Distance     float64 `bson:"distance" json:"distance"`
	ETA          float64 `bson:"eta" json:"eta"`
	Trips        int32   `bson:"trips" json:"trips"`
}

// Snapshot 生成当前状态的值拷贝
func (v *Vehicle) Snapshot() Snapshot {
	return Snapshot{
		ID:           v.ID,
		Type:         v.Type.String(),
		X:            v.Position[0],
		Y:            v.Position[1],
		VX:           v.Velocity[0],
		VY:           v.Velocity[1],
		AX:           v.Acceleration[0],
		AY:           v.Acceleration[1],
		Speed:        v.Speed,
		Heading:      v.Heading,
		TargetSpeed:  v.TargetSpeed,
		State:        v.State.String(),
		RouteIndex:   v.RouteIndex,
		RouteLength:  len(v.Route),
		WaitTime:     v.WaitTime,
		FuelConsumed: v.FuelConsumed,
		Distance:     v.Distance,
		ETA:          v.ETA,
		Trips:        v.Trips,
	}
}
