package task

import (
	"math"

	"github.com/samber/lo"
)

// 无集群控制基线的合成系数
const (
	baselineSpeedFactor      = 0.78
	baselineFuelFactor       = 1.22
	baselineWaitFactor       = 1.35
	baselineEmissionFactor   = 1.22
	baselineCongestionFactor = 1.3
	baselineIdleFactor       = 1.3
	baselineThroughputFactor = 0.85
)

// 收益推算参数
const (
	ReferenceFleetSize    = 10000 // 推算的车队规模
	operatingHoursPerYear = 2000  // 每辆车每年运营小时数
	fuelPricePerLiter     = 1.2   // 燃油单价
	timeValuePerHour      = 15.0  // 时间价值（每小时）
)

// Comparison 集群控制与基线的对比，各项为百分比，正数表示集群控制更优
type Comparison struct {
	SpeedImprovement    float64 `bson:"speed_improvement" json:"speed_improvement"`
	FuelSaving          float64 `bson:"fuel_saving" json:"fuel_saving"`
	WaitReduction       float64 `bson:"wait_reduction" json:"wait_reduction"`
	EmissionReduction   float64 `bson:"emission_reduction" json:"emission_reduction"`
	CongestionReduction float64 `bson:"congestion_reduction" json:"congestion_reduction"`
	Improvement         float64 `bson:"improvement" json:"improvement"` // 速度、油耗、等待三项的平均
}

// ROI 推算到参考车队规模的年化收益
type ROI struct {
	FleetSize        int     `bson:"fleet_size" json:"fleet_size"`
	FuelSavedLiters  float64 `bson:"fuel_saved_liters" json:"fuel_saved_liters"`
	TimeSavedHours   float64 `bson:"time_saved_hours" json:"time_saved_hours"`
	EmissionsSavedKg float64 `bson:"emissions_saved_kg" json:"emissions_saved_kg"`
	CostSaved        float64 `bson:"cost_saved" json:"cost_saved"`
}

// Result 仿真结果
type Result struct {
	ID         string     `bson:"id" json:"id"`
	Scenario   string     `bson:"scenario" json:"scenario"`
	Flocking   bool       `bson:"flocking" json:"flocking"`
	Weather    string     `bson:"weather" json:"weather"`
	Duration   float64    `bson:"duration" json:"duration"`
	Final      Metrics    `bson:"final" json:"final"`
	Baseline   Metrics    `bson:"baseline" json:"baseline"`
	Comparison Comparison `bson:"comparison" json:"comparison"`
	ROI        ROI        `bson:"roi" json:"roi"`
	History    []Metrics  `bson:"history" json:"history"`
}

// SyntheticBaseline 由固定系数合成无集群控制的基线
func SyntheticBaseline(m Metrics) Metrics {
	b := m
	b.AverageSpeed *= baselineSpeedFactor
	b.TotalFuel *= baselineFuelFactor
	b.AverageWaitTime *= baselineWaitFactor
	b.Emissions *= baselineEmissionFactor
	b.CongestionLevel = math.Min(b.CongestionLevel*baselineCongestionFactor, 1)
	b.IdleTimePercent = math.Min(b.IdleTimePercent*baselineIdleFactor, 100)
	b.Throughput *= baselineThroughputFactor
	return b
}

// relative (base-value)/base×100，基线为0时返回0
func relative(base, value float64) float64 {
	if base == 0 {
		return 0
	}
	return (base - value) / base * 100
}

// CompareMetrics 计算集群控制相对基线的改进
func CompareMetrics(flocking, baseline Metrics) Comparison {
	c := Comparison{
		SpeedImprovement:    -relative(baseline.AverageSpeed, flocking.AverageSpeed),
		FuelSaving:          relative(baseline.TotalFuel, flocking.TotalFuel),
		WaitReduction:       relative(baseline.AverageWaitTime, flocking.AverageWaitTime),
		EmissionReduction:   relative(baseline.Emissions, flocking.Emissions),
		CongestionReduction: relative(baseline.CongestionLevel, flocking.CongestionLevel),
	}
	c.Improvement = lo.Sum([]float64{c.SpeedImprovement, c.FuelSaving, c.WaitReduction}) / 3
	return c
}

// ProjectROI 推算参考车队规模下的年化收益
// 参数：flocking/baseline-最终指标，duration-仿真时长（秒）
// 算法说明：先求单车每小时的节省量，再乘以车队规模与年运营小时数
func ProjectROI(flocking, baseline Metrics, duration float64) ROI {
	roi := ROI{FleetSize: ReferenceFleetSize}
	if flocking.ActiveVehicles == 0 || duration <= 0 {
		return roi
	}
	scale := ReferenceFleetSize * operatingHoursPerYear / (float64(flocking.ActiveVehicles) * duration / 3600)
	roi.FuelSavedLiters = (baseline.TotalFuel - flocking.TotalFuel) * scale
	roi.EmissionsSavedKg = (baseline.Emissions - flocking.Emissions) * scale
	// 等待时间为单车平均值，换算为每车每小时的节省比例
	roi.TimeSavedHours = (baseline.AverageWaitTime - flocking.AverageWaitTime) / duration *
		ReferenceFleetSize * operatingHoursPerYear
	roi.CostSaved = roi.FuelSavedLiters*fuelPricePerLiter + roi.TimeSavedHours*timeValuePerHour
	return roi
}
