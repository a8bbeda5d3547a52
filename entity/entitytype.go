package entity

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类，调用方通过errors.Is判断
var (
	// ErrConfiguration 配置错误：无可用路网、无入口节点等，启动失败
	ErrConfiguration = errors.New("configuration error")
	// ErrPathNotFound 寻路失败：起终点不存在或不连通，可在下一步重试
	ErrPathNotFound = errors.New("path not found")
	// ErrStateInconsistency 状态不一致：车辆路径引用了不存在的节点，触发重生
	ErrStateInconsistency = errors.New("state inconsistency")
)

// KmhToMs 千米每小时转换为米每秒
const KmhToMs = 1 / 3.6

// NodeKind 路网节点类型
type NodeKind int

const (
	NodeIntersection NodeKind = iota // 普通路口
	NodeEntry                        // 入口，车辆从这里生成
	NodeExit                         // 出口
	NodeTrafficLight                 // 信控路口
)

func (k NodeKind) String() string {
	switch k {
	case NodeIntersection:
		return "intersection"
	case NodeEntry:
		return "entry"
	case NodeExit:
		return "exit"
	case NodeTrafficLight:
		return "traffic_light"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// ParseNodeKind 从字符串解析节点类型
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(s) {
	case "intersection", "":
		return NodeIntersection, nil
	case "entry":
		return NodeEntry, nil
	case "exit":
		return NodeExit, nil
	case "traffic_light", "trafficlight":
		return NodeTrafficLight, nil
	}
	return 0, fmt.Errorf("%w: unknown node kind %q", ErrConfiguration, s)
}

// LightState 信号灯状态
type LightState int

const (
	LightGreen LightState = iota
	LightYellow
	LightRed
)

func (s LightState) String() string {
	switch s {
	case LightGreen:
		return "green"
	case LightYellow:
		return "yellow"
	case LightRed:
		return "red"
	default:
		return fmt.Sprintf("LightState(%d)", int(s))
	}
}

// RoadClass 道路等级
type RoadClass int

const (
	RoadResidential RoadClass = iota
	RoadArterial
	RoadHighway
)

func (c RoadClass) String() string {
	switch c {
	case RoadResidential:
		return "residential"
	case RoadArterial:
		return "arterial"
	case RoadHighway:
		return "highway"
	default:
		return fmt.Sprintf("RoadClass(%d)", int(c))
	}
}

// ParseRoadClass 从字符串解析道路等级
func ParseRoadClass(s string) (RoadClass, error) {
	switch strings.ToLower(s) {
	case "residential", "":
		return RoadResidential, nil
	case "arterial":
		return RoadArterial, nil
	case "highway":
		return RoadHighway, nil
	}
	return 0, fmt.Errorf("%w: unknown road class %q", ErrConfiguration, s)
}

// VehicleType 车辆类型，每种类型对应固定的物理参数表
type VehicleType int

const (
	Sedan VehicleType = iota
	Bike
	Auto
	Truck
	Bus

	numVehicleTypes int = iota
)

// VehicleTypes 按枚举顺序列出所有车辆类型
var VehicleTypes = [numVehicleTypes]VehicleType{Sedan, Bike, Auto, Truck, Bus}

func (t VehicleType) String() string {
	switch t {
	case Sedan:
		return "sedan"
	case Bike:
		return "bike"
	case Auto:
		return "auto"
	case Truck:
		return "truck"
	case Bus:
		return "bus"
	default:
		return fmt.Sprintf("VehicleType(%d)", int(t))
	}
}

// ParseVehicleType 从字符串解析车辆类型
func ParseVehicleType(s string) (VehicleType, error) {
	for _, t := range VehicleTypes {
		if t.String() == strings.ToLower(s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown vehicle type %q", ErrConfiguration, s)
}

// Behavior 驾驶行为画像
type Behavior int

const (
	BehaviorNormal       Behavior = iota // 正常：权重不做修正
	BehaviorAggressive                   // 激进：弱化聚合与对齐，强化分离
	BehaviorConservative                 // 保守：三种力都适度增强
)

func (b Behavior) String() string {
	switch b {
	case BehaviorNormal:
		return "normal"
	case BehaviorAggressive:
		return "aggressive"
	case BehaviorConservative:
		return "conservative"
	default:
		return fmt.Sprintf("Behavior(%d)", int(b))
	}
}

// VehicleState 车辆运动状态
type VehicleState int

const (
	StateMoving VehicleState = iota
	StateStopped
	StateBraking
	StateAccelerating
	StateWaiting // 等待重生，此时路径指针无效
)

func (s VehicleState) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateStopped:
		return "stopped"
	case StateBraking:
		return "braking"
	case StateAccelerating:
		return "accelerating"
	case StateWaiting:
		return "waiting"
	default:
		return fmt.Sprintf("VehicleState(%d)", int(s))
	}
}

// Weather 天气
type Weather int

const (
	WeatherClear Weather = iota
	WeatherRain
	WeatherFog
)

func (w Weather) String() string {
	switch w {
	case WeatherClear:
		return "clear"
	case WeatherRain:
		return "rain"
	case WeatherFog:
		return "fog"
	default:
		return fmt.Sprintf("Weather(%d)", int(w))
	}
}

// Friction 天气对应的摩擦系数，只用于限制目标速度，不影响加减速能力
func (w Weather) Friction() float64 {
	switch w {
	case WeatherRain:
		return 0.7
	case WeatherFog:
		return 0.85
	default:
		return 1.0
	}
}

// ParseWeather 从字符串解析天气
func ParseWeather(s string) (Weather, error) {
	switch strings.ToLower(s) {
	case "clear", "":
		return WeatherClear, nil
	case "rain":
		return WeatherRain, nil
	case "fog":
		return WeatherFog, nil
	}
	return 0, fmt.Errorf("%w: unknown weather %q", ErrConfiguration, s)
}

// FlockingWeights 集群控制权重
type FlockingWeights struct {
	Cohesion         float64 `yaml:"cohesion" bson:"cohesion"`
	Alignment        float64 `yaml:"alignment" bson:"alignment"`
	Separation       float64 `yaml:"separation" bson:"separation"`
	PerceptionRadius float64 `yaml:"perception_radius" bson:"perception_radius"` // 感知半径（米）
}

// DefaultFlockingWeights 默认集群权重
func DefaultFlockingWeights() FlockingWeights {
	return FlockingWeights{
		Cohesion:         1.0,
		Alignment:        1.0,
		Separation:       1.5,
		PerceptionRadius: 30,
	}
}

func (w FlockingWeights) String() string {
	return fmt.Sprintf("Weights{c=%.3f, a=%.3f, s=%.3f, r=%.1f}",
		w.Cohesion, w.Alignment, w.Separation, w.PerceptionRadius)
}
