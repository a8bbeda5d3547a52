package road

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

// GridOptions 网格路网生成参数
type GridOptions struct {
	Width               float64 `yaml:"width"`                // 区域宽度（米）
	Height              float64 `yaml:"height"`               // 区域高度（米）
	CellSize            float64 `yaml:"cell_size"`            // 节点间距（米）
	LightProbability    float64 `yaml:"light_probability"`    // 内部节点设置信号灯的概率
	DiagonalProbability float64 `yaml:"diagonal_probability"` // 每个网格添加对角线路段的概率
	MinCycle            float64 `yaml:"min_cycle"`            // 信号周期下限（秒）
	MaxCycle            float64 `yaml:"max_cycle"`            // 信号周期上限（秒）
}

// DefaultGridOptions 默认1km×1km、间距100m的网格
func DefaultGridOptions() GridOptions {
	return GridOptions{
		Width:               1000,
		Height:              1000,
		CellSize:            100,
		LightProbability:    0.15,
		DiagonalProbability: 0.2,
		MinCycle:            30,
		MaxCycle:            90,
	}
}

// 各等级道路的车道数与限速（千米每小时）
var classLanes = map[entity.RoadClass]int32{
	entity.RoadResidential: 1,
	entity.RoadArterial:    2,
	entity.RoadHighway:     3,
}

var classSpeedLimitKmh = map[entity.RoadClass]float64{
	entity.RoadResidential: 40,
	entity.RoadArterial:    60,
	entity.RoadHighway:     80,
}

// ClassDefaults 道路等级对应的默认车道数与限速（米/秒）
func ClassDefaults(class entity.RoadClass) (lanes int32, speedLimit float64) {
	return classLanes[class], classSpeedLimitKmh[class] * entity.KmhToMs
}

// Generate 生成网格路网
// 功能：在width×height范围内按cellSize间距布置节点并连接相邻节点
// 参数：opts-生成参数，engine-随机数引擎
// 返回：路网，节点数不足2时返回ErrConfiguration
// 算法说明：
// 1. 边界节点按(x+y)奇偶交替设为入口/出口，内部节点以一定概率设为信控路口
// 2. 水平与竖直相邻节点之间添加双向路段，每个网格以一定概率添加一条对角线
// 3. 边界上的路段为快速路，每隔3行/列为主干路，其余为支路
func Generate(opts GridOptions, engine *randengine.Engine) (*Network, error) {
	if opts.CellSize <= 0 || opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("%w: invalid grid size %vx%v cell=%v",
			entity.ErrConfiguration, opts.Width, opts.Height, opts.CellSize)
	}
	if opts.LightProbability > 0 && (opts.MinCycle <= 0 || opts.MaxCycle < opts.MinCycle) {
		return nil, fmt.Errorf("%w: invalid signal cycle range [%v, %v]",
			entity.ErrConfiguration, opts.MinCycle, opts.MaxCycle)
	}
	cols := int(math.Floor(opts.Width/opts.CellSize)) + 1
	rows := int(math.Floor(opts.Height/opts.CellSize)) + 1
	if cols*rows < 2 {
		return nil, fmt.Errorf("%w: grid %dx%d has fewer than 2 nodes", entity.ErrConfiguration, cols, rows)
	}
	id := func(x, y int) int32 { return int32(y*cols + x) }
	border := func(x, y int) bool { return x == 0 || y == 0 || x == cols-1 || y == rows-1 }

	n := NewNetwork()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			node := Node{
				ID:       id(x, y),
				Position: orb.Point{float64(x) * opts.CellSize, float64(y) * opts.CellSize},
			}
			switch {
			case border(x, y) && (x+y)%2 == 0:
				node.Kind = entity.NodeEntry
			case border(x, y):
				node.Kind = entity.NodeExit
			case engine.PTrue(opts.LightProbability):
				node.Kind = entity.NodeTrafficLight
				cycle := engine.Uniform(opts.MinCycle, opts.MaxCycle)
				node.Light = NewTrafficLight(cycle, engine.Uniform(0, cycle))
			default:
				node.Kind = entity.NodeIntersection
			}
			if err := n.AddNode(node); err != nil {
				return nil, err
			}
		}
	}

	lineClass := func(line, last int) entity.RoadClass {
		switch {
		case line == 0 || line == last:
			return entity.RoadHighway
		case line%3 == 0:
			return entity.RoadArterial
		default:
			return entity.RoadResidential
		}
	}
	edges := make([]Edge, 0, 2*cols*rows)
	link := func(a, b int32, class entity.RoadClass) {
		lanes, limit := ClassDefaults(class)
		edges = append(edges, Edge{
			ID:            int32(len(edges)),
			From:          a,
			To:            b,
			Lanes:         lanes,
			SpeedLimit:    limit,
			Bidirectional: true,
			Class:         class,
		})
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if x+1 < cols {
				link(id(x, y), id(x+1, y), lineClass(y, rows-1))
			}
			if y+1 < rows {
				link(id(x, y), id(x, y+1), lineClass(x, cols-1))
			}
			if x+1 < cols && y+1 < rows && engine.PTrue(opts.DiagonalProbability) {
				link(id(x, y), id(x+1, y+1), entity.RoadResidential)
			}
		}
	}
	if err := n.AddEdges(edges...); err != nil {
		return nil, err
	}
	log.Infof("generated %dx%d grid network: %d nodes, %d edges, %d traffic lights",
		cols, rows, len(n.nodes), len(n.edges), len(n.Lights()))
	return n, nil
}
