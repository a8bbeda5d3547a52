package input

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
)

// lightDoc 信号灯描述，周期与初始相位的单位为秒
type lightDoc struct {
	Cycle  float64 `yaml:"cycle" bson:"cycle"`
	Offset float64 `yaml:"offset,omitempty" bson:"offset,omitempty"`
}

// nodeDoc 节点描述，文件与数据库共用
type nodeDoc struct {
	ID    int32     `yaml:"id" bson:"id"`
	X     float64   `yaml:"x" bson:"x"`
	Y     float64   `yaml:"y" bson:"y"`
	Kind  string    `yaml:"kind,omitempty" bson:"kind,omitempty"` // intersection|entry|exit|traffic_light
	Light *lightDoc `yaml:"light,omitempty" bson:"light,omitempty"`
}

// edgeDoc 路段描述，车道数与限速缺省时按道路等级取默认值
type edgeDoc struct {
	ID            int32   `yaml:"id" bson:"id"`
	From          int32   `yaml:"from" bson:"from"`
	To            int32   `yaml:"to" bson:"to"`
	Lanes         int32   `yaml:"lanes,omitempty" bson:"lanes,omitempty"`
	SpeedLimitKmh float64 `yaml:"speed_limit_kmh,omitempty" bson:"speed_limit_kmh,omitempty"`
	Bidirectional bool    `yaml:"bidirectional,omitempty" bson:"bidirectional,omitempty"`
	Class         string  `yaml:"class,omitempty" bson:"class,omitempty"` // residential|arterial|highway
}

// networkDoc YAML路网文件的根结构
type networkDoc struct {
	Bounds []float64 `yaml:"bounds,omitempty"` // [minX, minY, maxX, maxY]
	Nodes  []nodeDoc `yaml:"nodes"`
	Edges  []edgeDoc `yaml:"edges"`
}

// toNode 转换为路网节点
// 说明：声明了信号灯的节点视为信控路口
func (d nodeDoc) toNode() (road.Node, error) {
	kind, err := entity.ParseNodeKind(d.Kind)
	if err != nil {
		return road.Node{}, fmt.Errorf("node %d: %w", d.ID, err)
	}
	node := road.Node{ID: d.ID, Position: orb.Point{d.X, d.Y}, Kind: kind}
	if d.Light != nil {
		if d.Light.Cycle <= 0 {
			return road.Node{}, fmt.Errorf("%w: node %d has non-positive light cycle %v", entity.ErrConfiguration, d.ID, d.Light.Cycle)
		}
		if kind == entity.NodeIntersection {
			node.Kind = entity.NodeTrafficLight
		}
		node.Light = road.NewTrafficLight(d.Light.Cycle, d.Light.Offset)
	}
	return node, nil
}

func (d edgeDoc) toEdge() (road.Edge, error) {
	class, err := entity.ParseRoadClass(d.Class)
	if err != nil {
		return road.Edge{}, fmt.Errorf("edge %d: %w", d.ID, err)
	}
	lanes, limit := road.ClassDefaults(class)
	if d.Lanes > 0 {
		lanes = d.Lanes
	}
	if d.SpeedLimitKmh > 0 {
		limit = d.SpeedLimitKmh * entity.KmhToMs
	}
	return road.Edge{
		ID:            d.ID,
		From:          d.From,
		To:            d.To,
		Lanes:         lanes,
		SpeedLimit:    limit,
		Bidirectional: d.Bidirectional,
		Class:         class,
	}, nil
}

// build 由节点与路段描述构建并校验路网
// 参数：bounds-声明的区域范围，为空时不检查，节点超出范围只记录警告
func build(nodes []nodeDoc, edges []edgeDoc, bounds []float64) (*road.Network, error) {
	var area *orb.Bound
	switch len(bounds) {
	case 0:
	case 4:
		area = &orb.Bound{Min: orb.Point{bounds[0], bounds[1]}, Max: orb.Point{bounds[2], bounds[3]}}
	default:
		return nil, fmt.Errorf("%w: bounds must be [minX, minY, maxX, maxY], got %v", entity.ErrConfiguration, bounds)
	}
	n := road.NewNetwork()
	for _, d := range nodes {
		node, err := d.toNode()
		if err != nil {
			return nil, err
		}
		if area != nil && !area.Contains(node.Position) {
			log.Warnf("node %d at %v is outside bounds %v", node.ID, node.Position, bounds)
		}
		if err := n.AddNode(node); err != nil {
			return nil, err
		}
	}
	es := make([]road.Edge, 0, len(edges))
	for _, d := range edges {
		e, err := d.toEdge()
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	if err := n.AddEdges(es...); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
