package task

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
)

const (
	co2PerLiter         = 2.31 // 每升燃油的二氧化碳排放（千克）
	congestedSpeedRatio = 0.2  // 低于最大速度该比例视为拥堵
)

// Metrics 每步的指标快照
type Metrics struct {
	Timestamp       float64                `bson:"t" json:"t"`                               // 仿真时间（秒）
	Step            int64                  `bson:"step" json:"step"`                         // 步数
	ActiveVehicles  int                    `bson:"active_vehicles" json:"active_vehicles"`   // 非等待状态的车辆数
	AverageSpeed    float64                `bson:"average_speed" json:"average_speed"`       // 米/秒
	AverageWaitTime float64                `bson:"average_wait_time" json:"average_wait_time"` // 秒
	TotalDistance   float64                `bson:"total_distance" json:"total_distance"`     // 累计行驶距离（米）
	TotalFuel       float64                `bson:"total_fuel" json:"total_fuel"`             // 累计油耗（升）
	Emissions       float64                `bson:"emissions" json:"emissions"`               // 累计二氧化碳（千克）
	Throughput      float64                `bson:"throughput" json:"throughput"`             // 每分钟完成的行程数
	CongestionLevel float64                `bson:"congestion_level" json:"congestion_level"` // [0,1]
	IdleTimePercent float64                `bson:"idle_time_percent" json:"idle_time_percent"`
	CompletedTrips  int                    `bson:"completed_trips" json:"completed_trips"`
	Weights         entity.FlockingWeights `bson:"weights" json:"weights"` // 当前全局集群权重
}

// aggregate 汇总所有车辆的指标
// 参数：t-仿真时间，totalDistance-累计行驶距离（含重生前的行程），trips-累计完成行程数
func aggregate(step int64, t float64, vehicles []*vehicle.Vehicle, totalDistance float64, trips int, weights entity.FlockingWeights) Metrics {
	active := lo.Filter(vehicles, func(v *vehicle.Vehicle, _ int) bool { return !v.Waiting() })
	m := Metrics{
		Timestamp:      t,
		Step:           step,
		ActiveVehicles: len(active),
		TotalDistance:  totalDistance,
		TotalFuel:      lo.SumBy(vehicles, func(v *vehicle.Vehicle) float64 { return v.FuelConsumed }),
		CompletedTrips: trips,
		Weights:        weights,
	}
	m.Emissions = m.TotalFuel * co2PerLiter
	if t > 0 {
		m.Throughput = float64(trips) / (t / 60)
	}
	if n := float64(len(active)); n > 0 {
		m.AverageSpeed = lo.SumBy(active, func(v *vehicle.Vehicle) float64 { return v.Speed }) / n
		m.AverageWaitTime = lo.SumBy(active, func(v *vehicle.Vehicle) float64 { return v.WaitTime }) / n
		m.CongestionLevel = float64(lo.CountBy(active, func(v *vehicle.Vehicle) bool {
			return v.Speed < congestedSpeedRatio*v.Profile.MaxSpeed
		})) / n
		m.IdleTimePercent = float64(lo.CountBy(active, func(v *vehicle.Vehicle) bool {
			return v.State == entity.StateStopped
		})) / n * 100
	}
	return m
}
