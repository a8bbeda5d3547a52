package config

import (
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
)

// InputPath 指定MongoDB中的一个集合
// 功能：定义数据库名与集合名，供mongoutil.GetMongoColl定位集合
type InputPath struct {
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Valid 数据库名与集合名均已设置
func (p InputPath) Valid() bool {
	return p.DB != "" && p.Col != ""
}

// NetworkInput 路网来源
// 说明：优先级 File > Mongo > Grid；三者均未设置时使用默认网格
type NetworkInput struct {
	File  string            `yaml:"file,omitempty"`  // YAML路网文件路径
	Mongo *InputPath        `yaml:"mongo,omitempty"` // 存放class=node|edge文档的集合
	Grid  *road.GridOptions `yaml:"grid,omitempty"`  // 网格生成参数
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI     string       `yaml:"uri,omitempty"` // MongoDB连接字符串
	Network NetworkInput `yaml:"network"`       // 路网
}

// Control 模拟器控制配置
// 功能：定义仿真时间、随机种子与调度方式
type Control struct {
	Duration float64 `yaml:"duration"`           // 仿真时长（秒）
	Step     float64 `yaml:"step,omitempty"`     // 逻辑步长（秒）
	Seed     uint64  `yaml:"seed,omitempty"`     // 随机种子
	Realtime bool    `yaml:"realtime,omitempty"` // 按墙钟节奏运行，否则尽快运行
	Speedup  float64 `yaml:"speedup,omitempty"`  // 按墙钟运行时的加速倍数
	Compare  bool    `yaml:"compare,omitempty"`  // 额外运行一次关闭集群控制的对照仿真
	Scenario string  `yaml:"scenario,omitempty"` // 场景名
	Weather  string  `yaml:"weather,omitempty"`  // clear|rain|fog
	History  int     `yaml:"history,omitempty"`  // 指标历史长度
	// 启动时每辆车的放置尝试次数，全部车辆共用总预算
	SpawnAttempts int `yaml:"spawn_attempts,omitempty"`
}

// Fleet 各车型数量，键为车型名（sedan bike auto truck bus）
type Fleet map[string]int

// Flocking 集群控制配置
type Flocking struct {
	Enabled             bool                    `yaml:"enabled"`
	ParameterAdjustment bool                    `yaml:"parameter_adjustment,omitempty"` // 启用权重调节器
	Weights             *entity.FlockingWeights `yaml:"weights,omitempty"`              // 为空时使用默认权重
	CellSize            float64                 `yaml:"cell_size,omitempty"`            // 空间索引格子边长（米）
}

// Output 结果输出配置，集合为空时不写入
type Output struct {
	URI      string     `yaml:"uri,omitempty"`      // 为空时使用input.uri
	Metrics  *InputPath `yaml:"metrics,omitempty"`  // 逐步指标
	Result   *InputPath `yaml:"result,omitempty"`   // 结果汇总
	Interval int        `yaml:"interval,omitempty"` // 指标写入间隔（步）
}

// RPC 控制服务配置，listen为空时不启动
type RPC struct {
	Listen string `yaml:"listen,omitempty"`
}

// Config YAML配置文件的根结构
type Config struct {
	Input     Input           `yaml:"input"`
	Control   Control         `yaml:"control"`
	Fleet     Fleet           `yaml:"fleet"`
	Flocking  Flocking        `yaml:"flocking"`
	Obstacles [][][][]float64 `yaml:"obstacles,omitempty"` // 多边形列表，每个多边形为若干环，每个环为[x, y]点列
	Output    Output          `yaml:"output,omitempty"`
	RPC       RPC             `yaml:"rpc,omitempty"`
}
