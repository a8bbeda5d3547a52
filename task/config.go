package task

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
)

const (
	DefaultStep          = 0.1   // 默认逻辑步长（秒）
	defaultHistorySize   = 10000 // 默认指标历史长度
	defaultSpawnAttempts = 10    // 每辆车的启动放置尝试次数
	defaultCellSize      = 50    // 默认空间索引格子边长（米）
)

// SimulationConfig 一次仿真运行的配置，运行期间只读
type SimulationConfig struct {
	Fleet               map[entity.VehicleType]int // 各车型数量
	Duration            float64                    // 仿真时长（秒）
	Step                float64                    // 逻辑步长（秒），不大于0时使用DefaultStep
	Flocking            bool                       // 是否启用集群控制
	ParameterAdjustment bool                       // 是否启用权重调节器
	Weather             entity.Weather
	Weights             entity.FlockingWeights // 全局集群权重
	Scenario            string                 // 场景名，仅用于输出
	Obstacles           []orb.Polygon          // 障碍物，核心逻辑不使用
	Seed                uint64
	HistorySize         int     // 指标历史长度，不大于0时使用默认值
	SpawnAttempts       int     // 每辆车的启动放置尝试次数，不大于0时使用默认值
	CellSize            float64 // 空间索引格子边长，不大于0时使用默认值
}

// withDefaults 填充未设置的可选项
func (c SimulationConfig) withDefaults() SimulationConfig {
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaultHistorySize
	}
	if c.SpawnAttempts <= 0 {
		c.SpawnAttempts = defaultSpawnAttempts
	}
	if c.CellSize <= 0 {
		c.CellSize = defaultCellSize
	}
	return c
}

// validate 检查配置
func (c SimulationConfig) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", entity.ErrConfiguration, c.Duration)
	}
	for t, n := range c.Fleet {
		if n < 0 {
			return fmt.Errorf("%w: negative count %d for %v", entity.ErrConfiguration, n, t)
		}
	}
	if c.Flocking && c.Weights.PerceptionRadius < 0 {
		return fmt.Errorf("%w: negative perception radius %v", entity.ErrConfiguration, c.Weights.PerceptionRadius)
	}
	return nil
}

// FleetSize 车辆总数
func (c SimulationConfig) FleetSize() int {
	return lo.Sum(lo.Values(c.Fleet))
}

// fleetTypes 按车型枚举顺序展开车队，保证车辆ID与车型的对应关系确定
func (c SimulationConfig) fleetTypes() []entity.VehicleType {
	return lo.FlatMap(entity.VehicleTypes[:], func(t entity.VehicleType, _ int) []entity.VehicleType {
		return lo.Times(c.Fleet[t], func(int) entity.VehicleType { return t })
	})
}
