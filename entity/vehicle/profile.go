package vehicle

import "github.com/tsinghua-fib-lab/flocksim-go/entity"

// Profile 车辆类型的物理参数
type Profile struct {
	MaxSpeed        float64 // 最大速度（米/秒）
	MaxAcceleration float64 // 最大加速度（米/秒²）
	MaxBraking      float64 // 最大制动减速度（米/秒²），正数
	TurningRadius   float64 // 最小转弯半径（米）
	Length          float64 // 车长（米）
	Width           float64 // 车宽（米）
	Mass            float64 // 质量（千克）
	DragCoefficient float64 // 二次阻力系数，阻力=系数×速度²
	Behavior        entity.Behavior
	FuelRate        float64 // 经济车速巡航时的油耗（升/秒）
}

// ProfileOf 车辆类型对应的物理参数
// 说明：枚举外的类型属于编程错误，直接panic
func ProfileOf(t entity.VehicleType) Profile {
	switch t {
	case entity.Sedan:
		return Profile{
			MaxSpeed:        120 * entity.KmhToMs,
			MaxAcceleration: 3.0,
			MaxBraking:      8.0,
			TurningRadius:   5.5,
			Length:          4.5,
			Width:           1.8,
			Mass:            1500,
			DragCoefficient: 0.3,
			Behavior:        entity.BehaviorNormal,
			FuelRate:        0.0011,
		}
	case entity.Bike:
		return Profile{
			MaxSpeed:        80 * entity.KmhToMs,
			MaxAcceleration: 4.0,
			MaxBraking:      9.0,
			TurningRadius:   2.5,
			Length:          2.0,
			Width:           0.8,
			Mass:            200,
			DragCoefficient: 0.6,
			Behavior:        entity.BehaviorAggressive,
			FuelRate:        0.0004,
		}
	case entity.Auto:
		return Profile{
			MaxSpeed:        50 * entity.KmhToMs,
			MaxAcceleration: 1.5,
			MaxBraking:      5.0,
			TurningRadius:   3.5,
			Length:          2.8,
			Width:           1.4,
			Mass:            400,
			DragCoefficient: 0.5,
			Behavior:        entity.BehaviorConservative,
			FuelRate:        0.0006,
		}
	case entity.Truck:
		return Profile{
			MaxSpeed:        80 * entity.KmhToMs,
			MaxAcceleration: 1.0,
			MaxBraking:      5.0,
			TurningRadius:   12,
			Length:          10,
			Width:           2.5,
			Mass:            12000,
			DragCoefficient: 0.8,
			Behavior:        entity.BehaviorConservative,
			FuelRate:        0.005,
		}
	case entity.Bus:
		return Profile{
			MaxSpeed:        70 * entity.KmhToMs,
			MaxAcceleration: 1.2,
			MaxBraking:      5.5,
			TurningRadius:   11,
			Length:          12,
			Width:           2.5,
			Mass:            14000,
			DragCoefficient: 0.7,
			Behavior:        entity.BehaviorConservative,
			FuelRate:        0.004,
		}
	}
	log.Panicf("unknown vehicle type %v", t)
	return Profile{}
}
