package config

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/task"
	"gopkg.in/yaml.v2"
)

const (
	defaultDuration       = 300 // 默认仿真时长（秒）
	defaultOutputInterval = 10  // 默认指标写入间隔（步）
)

// Default 默认配置：默认网格上20辆轿车，开启集群控制，运行5分钟
func Default() Config {
	return Config{
		Control: Control{
			Duration: defaultDuration,
			Step:     task.DefaultStep,
			Seed:     1,
			Speedup:  1,
			Weather:  entity.WeatherClear.String(),
		},
		Fleet: Fleet{entity.Sedan.String(): 20},
		Flocking: Flocking{
			Enabled: true,
		},
		Output: Output{
			Interval: defaultOutputInterval,
		},
	}
}

// Load 解析YAML配置，未出现的字段保留默认值
// 说明：使用严格模式，出现未知字段时报错
func Load(data []byte) (Config, error) {
	c := Default()
	c.Fleet = nil // 车队整体替换，不与默认值合并
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", entity.ErrConfiguration, err)
	}
	if c.Fleet == nil {
		c.Fleet = Default().Fleet
	}
	return c, nil
}

// Validate 检查配置
// 返回：不合法时返回包装ErrConfiguration的错误
func (c Config) Validate() error {
	if c.Control.Duration <= 0 {
		return fmt.Errorf("%w: control.duration must be positive, got %v", entity.ErrConfiguration, c.Control.Duration)
	}
	if c.Control.Step < 0 {
		return fmt.Errorf("%w: control.step must not be negative, got %v", entity.ErrConfiguration, c.Control.Step)
	}
	if c.Control.History < 0 || c.Control.SpawnAttempts < 0 {
		return fmt.Errorf("%w: control.history and control.spawn_attempts must not be negative", entity.ErrConfiguration)
	}
	if c.Control.Realtime && c.Control.Speedup <= 0 {
		return fmt.Errorf("%w: control.speedup must be positive in realtime mode", entity.ErrConfiguration)
	}
	if _, err := entity.ParseWeather(c.Control.Weather); err != nil {
		return err
	}
	for name, n := range c.Fleet {
		if _, err := entity.ParseVehicleType(name); err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: fleet.%s must not be negative", entity.ErrConfiguration, name)
		}
	}
	if w := c.Flocking.Weights; w != nil && (w.Cohesion < 0 || w.Alignment < 0 || w.Separation < 0 || w.PerceptionRadius < 0) {
		return fmt.Errorf("%w: flocking weights must not be negative: %v", entity.ErrConfiguration, *w)
	}
	if c.Input.Network.Mongo != nil {
		if !c.Input.Network.Mongo.Valid() {
			return fmt.Errorf("%w: input.network.mongo needs db and col", entity.ErrConfiguration)
		}
		if c.Input.URI == "" {
			return fmt.Errorf("%w: input.network.mongo needs input.uri", entity.ErrConfiguration)
		}
	}
	if c.Output.Metrics != nil || c.Output.Result != nil {
		if c.Output.URI == "" && c.Input.URI == "" {
			return fmt.Errorf("%w: output needs output.uri or input.uri", entity.ErrConfiguration)
		}
		for _, p := range []*InputPath{c.Output.Metrics, c.Output.Result} {
			if p != nil && !p.Valid() {
				return fmt.Errorf("%w: output collection needs db and col", entity.ErrConfiguration)
			}
		}
	}
	for i, polygon := range c.Obstacles {
		for _, ring := range polygon {
			for _, p := range ring {
				if len(p) != 2 {
					return fmt.Errorf("%w: obstacle %d has point %v, want [x, y]", entity.ErrConfiguration, i, p)
				}
			}
		}
	}
	return nil
}

// OutputURI 输出使用的MongoDB连接字符串
func (c Config) OutputURI() string {
	if c.Output.URI != "" {
		return c.Output.URI
	}
	return c.Input.URI
}

// RuntimeConfig 运行时配置
// 功能：存储校验后的配置，以及由其转换得到的仿真配置
type RuntimeConfig struct {
	All        Config                // 全部配置
	C          Control               // 全局控制配置
	Simulation task.SimulationConfig // 仿真引擎配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：校验配置并转换为引擎使用的类型
// 参数：config-原始配置对象
// 返回：运行时配置，配置不合法时返回错误
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	weather, _ := entity.ParseWeather(config.Control.Weather)
	weights := entity.DefaultFlockingWeights()
	if config.Flocking.Weights != nil {
		weights = *config.Flocking.Weights
	}
	fleet := make(map[entity.VehicleType]int, len(config.Fleet))
	for name, n := range config.Fleet {
		t, _ := entity.ParseVehicleType(name)
		fleet[t] += n
	}
	return &RuntimeConfig{
		All: config,
		C:   config.Control,
		Simulation: task.SimulationConfig{
			Fleet:               fleet,
			Duration:            config.Control.Duration,
			Step:                config.Control.Step,
			Flocking:            config.Flocking.Enabled,
			ParameterAdjustment: config.Flocking.ParameterAdjustment,
			Weather:             weather,
			Weights:             weights,
			Scenario:            config.Control.Scenario,
			Obstacles:           lo.Map(config.Obstacles, toPolygon),
			Seed:                config.Control.Seed,
			HistorySize:         config.Control.History,
			SpawnAttempts:       config.Control.SpawnAttempts,
			CellSize:            config.Flocking.CellSize,
		},
	}, nil
}

func toPolygon(rings [][][]float64, _ int) orb.Polygon {
	return lo.Map(rings, func(ring [][]float64, _ int) orb.Ring {
		return lo.Map(ring, func(p []float64, _ int) orb.Point { return orb.Point{p[0], p[1]} })
	})
}
