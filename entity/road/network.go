package road

import (
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node 路网节点
type Node struct {
	ID       int32
	Position orb.Point
	Kind     entity.NodeKind
	Light    *TrafficLight // 仅信控路口非空
}

// LightState 节点当前灯色，无信号灯时恒为绿灯
func (n *Node) LightState() (state entity.LightState, remaining float64) {
	if n.Light == nil {
		return entity.LightGreen, mathutil.INF
	}
	return n.Light.State(), n.Light.Remaining()
}

// Edge 路段，端点通过ID引用节点
type Edge struct {
	ID            int32
	From, To      int32
	Lanes         int32
	SpeedLimit    float64 // 限速（米/秒）
	Length        float64 // 由端点距离计算
	Bidirectional bool
	Class         entity.RoadClass
}

type edgeKey struct{ from, to int32 }

// Network 路网
// 功能：持有所有节点与路段，维护寻路用的邻接表
// 说明：邻接表按路段加入顺序构建，保证BFS的遍历顺序确定
type Network struct {
	nodes     map[int32]*Node
	nodeOrder []int32
	edges     []*Edge
	edgeIndex map[edgeKey]*Edge
	adjacency map[int32][]int32
	bounds    orb.Bound
}

// NewNetwork 创建空路网
func NewNetwork() *Network {
	return &Network{
		nodes:     make(map[int32]*Node),
		edgeIndex: make(map[edgeKey]*Edge),
		adjacency: make(map[int32][]int32),
	}
}

// AddNode 添加节点，ID重复时返回错误
func (n *Network) AddNode(node Node) error {
	if _, ok := n.nodes[node.ID]; ok {
		return fmt.Errorf("%w: duplicated node id %d", entity.ErrConfiguration, node.ID)
	}
	if node.Kind == entity.NodeTrafficLight && node.Light == nil {
		return fmt.Errorf("%w: traffic light node %d without light", entity.ErrConfiguration, node.ID)
	}
	p := &node
	if len(n.nodes) == 0 {
		n.bounds = orb.Bound{Min: p.Position, Max: p.Position}
	} else {
		n.bounds = n.bounds.Extend(p.Position)
	}
	n.nodes[node.ID] = p
	n.nodeOrder = append(n.nodeOrder, node.ID)
	return nil
}

// AddEdges 添加路段
// 功能：校验端点存在后加入路段，长度由端点坐标计算，全部加入后重建邻接表
// 返回：任一路段非法时返回ErrConfiguration，此前的路段保持加入状态
func (n *Network) AddEdges(edges ...Edge) error {
	defer n.RebuildAdjacency()
	for _, edge := range edges {
		from, ok := n.nodes[edge.From]
		if !ok {
			return fmt.Errorf("%w: edge %d references missing node %d", entity.ErrConfiguration, edge.ID, edge.From)
		}
		to, ok := n.nodes[edge.To]
		if !ok {
			return fmt.Errorf("%w: edge %d references missing node %d", entity.ErrConfiguration, edge.ID, edge.To)
		}
		if edge.From == edge.To {
			return fmt.Errorf("%w: edge %d is a self loop on node %d", entity.ErrConfiguration, edge.ID, edge.From)
		}
		e := edge
		e.Length = planar.Distance(from.Position, to.Position)
		if e.Lanes <= 0 {
			e.Lanes = 1
		}
		n.edges = append(n.edges, &e)
	}
	return nil
}

// RebuildAdjacency 由路段列表重建邻接表
func (n *Network) RebuildAdjacency() {
	n.adjacency = make(map[int32][]int32, len(n.nodes))
	n.edgeIndex = make(map[edgeKey]*Edge, len(n.edges)*2)
	link := func(a, b int32, e *Edge) {
		k := edgeKey{a, b}
		if _, ok := n.edgeIndex[k]; ok {
			return
		}
		n.edgeIndex[k] = e
		n.adjacency[a] = append(n.adjacency[a], b)
	}
	for _, e := range n.edges {
		link(e.From, e.To, e)
		if e.Bidirectional {
			link(e.To, e.From, e)
		}
	}
}

// Node 查找节点，不存在时返回nil
func (n *Network) Node(id int32) *Node {
	return n.nodes[id]
}

// Nodes 按加入顺序返回所有节点
func (n *Network) Nodes() []*Node {
	return lo.Map(n.nodeOrder, func(id int32, _ int) *Node { return n.nodes[id] })
}

// NodeIDs 按加入顺序返回所有节点ID
func (n *Network) NodeIDs() []int32 {
	return n.nodeOrder
}

// Edges 返回所有路段
func (n *Network) Edges() []*Edge {
	return n.edges
}

// Edge 查找a到b可通行的路段
func (n *Network) Edge(a, b int32) (*Edge, bool) {
	e, ok := n.edgeIndex[edgeKey{a, b}]
	return e, ok
}

// Neighbors 节点的后继节点（按路段加入顺序）
func (n *Network) Neighbors(id int32) []int32 {
	return n.adjacency[id]
}

// Bounds 路网外包矩形
func (n *Network) Bounds() orb.Bound {
	return n.bounds
}

// NodesOfKind 按类型筛选节点ID
func (n *Network) NodesOfKind(kind entity.NodeKind) []int32 {
	return lo.Filter(n.nodeOrder, func(id int32, _ int) bool {
		return n.nodes[id].Kind == kind
	})
}

// Lights 所有信控节点
func (n *Network) Lights() []*Node {
	return lo.Filter(n.Nodes(), func(node *Node, _ int) bool { return node.Light != nil })
}

// UpdateLights 推进所有信号灯
func (n *Network) UpdateLights(dt float64) {
	for _, id := range n.nodeOrder {
		if l := n.nodes[id].Light; l != nil {
			l.Update(dt)
		}
	}
}

// Validate 检查路网是否可用于仿真
// 算法说明：
// 1. 至少有两个节点和一个入口节点
// 2. 每个节点的出度或入度至少为1
func (n *Network) Validate() error {
	if len(n.nodes) < 2 {
		return fmt.Errorf("%w: network needs at least 2 nodes, got %d", entity.ErrConfiguration, len(n.nodes))
	}
	if len(n.NodesOfKind(entity.NodeEntry)) == 0 {
		return fmt.Errorf("%w: network has no entry node", entity.ErrConfiguration)
	}
	degree := make(map[int32]int, len(n.nodes))
	for k := range n.edgeIndex {
		degree[k.from]++
		degree[k.to]++
	}
	for _, id := range n.nodeOrder {
		if degree[id] == 0 {
			return fmt.Errorf("%w: node %d is isolated", entity.ErrConfiguration, id)
		}
	}
	return nil
}

// Graph 转换为gonum有向图，节点ID与路网一致
func (n *Network) Graph() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, id := range n.nodeOrder {
		g.AddNode(simple.Node(id))
	}
	for k := range n.edgeIndex {
		g.SetEdge(simple.Edge{F: simple.Node(k.from), T: simple.Node(k.to)})
	}
	return g
}

// StronglyConnectedComponents 强连通分量数目
func (n *Network) StronglyConnectedComponents() int {
	return len(topo.TarjanSCC(n.Graph()))
}

// Reachable 判断from能否到达to
func (n *Network) Reachable(from, to int32) bool {
	if n.nodes[from] == nil || n.nodes[to] == nil {
		return false
	}
	return topo.PathExistsIn(n.Graph(), simple.Node(from), simple.Node(to))
}
