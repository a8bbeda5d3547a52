package road

import (
	"fmt"

	"github.com/paulmach/orb/planar"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
)

// FindShortestPath 最少跳数路径
// 功能：在邻接表上做广度优先搜索，返回从from到to经过的节点序列（含两端）
// 返回：from==to时返回[from]；端点不存在或不连通时返回ErrPathNotFound
// 说明：邻接表顺序固定，相同输入总是得到相同路径
func (n *Network) FindShortestPath(from, to int32) ([]int32, error) {
	if n.nodes[from] == nil || n.nodes[to] == nil {
		return nil, fmt.Errorf("%w: %d -> %d: missing endpoint", entity.ErrPathNotFound, from, to)
	}
	if from == to {
		return []int32{from}, nil
	}
	prev := map[int32]int32{from: from}
	queue := []int32{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range n.adjacency[cur] {
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = cur
			if next == to {
				return backtrack(prev, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: %d -> %d: unreachable", entity.ErrPathNotFound, from, to)
}

func backtrack(prev map[int32]int32, from, to int32) []int32 {
	path := []int32{to}
	for cur := to; cur != from; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// RouteLength 路径总长度（米），从下标start开始计算
func (n *Network) RouteLength(route []int32, start int) float64 {
	length := 0.
	for i := max(start, 0); i+1 < len(route); i++ {
		a, b := n.nodes[route[i]], n.nodes[route[i+1]]
		if a == nil || b == nil {
			continue
		}
		length += planar.Distance(a.Position, b.Position)
	}
	return length
}

// RouteSpeedLimit 路径上下一段路的限速，找不到路段时返回ok=false
func (n *Network) RouteSpeedLimit(from, to int32) (limit float64, ok bool) {
	e, ok := n.Edge(from, to)
	if !ok {
		return 0, false
	}
	return e.SpeedLimit, true
}
