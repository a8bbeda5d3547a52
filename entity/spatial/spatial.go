// 均匀网格空间索引，每个仿真步重建一次，用于限定邻居搜索范围
package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
)

// Entry 索引中的车辆快照
// 说明：重建时拷贝位置与速度，一步之内索引内容不随车辆状态变化
type Entry struct {
	ID       int32
	Position orb.Point
	Velocity orb.Point
	Length   float64
	Vehicle  *vehicle.Vehicle
}

// Neighbor 邻居查询结果
type Neighbor struct {
	*Entry
	Distance         float64   // 与查询车辆的欧氏距离
	RelativeVelocity orb.Point // 邻居速度减去查询车辆速度
}

type cellKey struct{ x, y int }

// Index 网格空间索引
type Index struct {
	cellSize float64
	cells    map[cellKey][]*Entry
	occupied []cellKey // 有车辆的格子，按首次出现的顺序
	lo, hi   cellKey   // 有车辆的格子坐标范围
	builtAt  int64     // 最近一次重建所在的步数，-1表示未建立
	size     int
}

// New 创建空间索引
func New(cellSize float64) *Index {
	if cellSize <= 0 {
		log.Panicf("spatial: cell size must be positive, got %v", cellSize)
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey][]*Entry),
		builtAt:  -1,
	}
}

func (idx *Index) keyOf(p orb.Point) cellKey {
	return cellKey{int(math.Floor(p[0] / idx.cellSize)), int(math.Floor(p[1] / idx.cellSize))}
}

// Stale 当前步是否需要重建
func (idx *Index) Stale(tick int64) bool {
	return idx.builtAt != tick
}

// Size 索引中的车辆数
func (idx *Index) Size() int {
	return idx.size
}

// Rebuild 清空并重新分桶
// 功能：同一步内重复调用直接返回false，不做任何修改
// 参数：tick-当前步数，vehicles-所有车辆（等待重生的车辆不进入索引）
// 返回：是否实际执行了重建
func (idx *Index) Rebuild(tick int64, vehicles []*vehicle.Vehicle) bool {
	if !idx.Stale(tick) {
		return false
	}
	clear(idx.cells)
	idx.occupied = idx.occupied[:0]
	idx.size = 0
	for _, v := range vehicles {
		if v.Waiting() {
			continue
		}
		e := &Entry{
			ID:       v.ID,
			Position: v.Position,
			Velocity: v.Velocity,
			Length:   v.Profile.Length,
			Vehicle:  v,
		}
		k := idx.keyOf(e.Position)
		if _, ok := idx.cells[k]; !ok {
			idx.occupy(k)
		}
		idx.cells[k] = append(idx.cells[k], e)
		idx.size++
	}
	idx.builtAt = tick
	return true
}

func (idx *Index) occupy(k cellKey) {
	if len(idx.occupied) == 0 {
		idx.lo, idx.hi = k, k
	} else {
		idx.lo = cellKey{min(idx.lo.x, k.x), min(idx.lo.y, k.y)}
		idx.hi = cellKey{max(idx.hi.x, k.x), max(idx.hi.y, k.y)}
	}
	idx.occupied = append(idx.occupied, k)
}

// NeighborsOf 查询半径内的邻居
// 功能：扫描以车辆所在格为中心、ceil(radius/cellSize)圈内的格子，返回距离不超过radius的其他车辆
// 说明：按ID排除自身，与车辆重合的其他车辆同样返回
// 算法说明：扫描范围裁剪到有车辆的格子坐标范围内；裁剪后格子数仍多于有车辆的格子数时，改为遍历有车辆的格子
func (idx *Index) NeighborsOf(v *vehicle.Vehicle, radius float64) []Neighbor {
	if radius <= 0 || len(idx.occupied) == 0 {
		return nil
	}
	center := idx.keyOf(v.Position)
	// 超出该圈数的格子一定没有车辆，先裁剪再转换为整数以免溢出
	reach := max(abs(center.x-idx.lo.x), abs(center.x-idx.hi.x), abs(center.y-idx.lo.y), abs(center.y-idx.hi.y))
	ring := reach
	if r := math.Ceil(radius / idx.cellSize); r < float64(reach) {
		ring = int(r)
	}
	x0, x1 := max(center.x-ring, idx.lo.x), min(center.x+ring, idx.hi.x)
	y0, y1 := max(center.y-ring, idx.lo.y), min(center.y+ring, idx.hi.y)
	if x0 > x1 || y0 > y1 {
		return nil
	}
	var result []Neighbor
	if float64(x1-x0+1)*float64(y1-y0+1) > float64(len(idx.occupied)) {
		for _, k := range idx.occupied {
			if k.x >= x0 && k.x <= x1 && k.y >= y0 && k.y <= y1 {
				result = idx.collect(result, v, radius, k)
			}
		}
		return result
	}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			result = idx.collect(result, v, radius, cellKey{x, y})
		}
	}
	return result
}

// collect 将格子k中距离不超过radius的其他车辆追加到result
func (idx *Index) collect(result []Neighbor, v *vehicle.Vehicle, radius float64, k cellKey) []Neighbor {
	for _, e := range idx.cells[k] {
		if e.ID == v.ID {
			continue
		}
		d := planar.Distance(v.Position, e.Position)
		if d > radius {
			continue
		}
		result = append(result, Neighbor{
			Entry:            e,
			Distance:         d,
			RelativeVelocity: entity.Sub(e.Velocity, v.Velocity),
		})
	}
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Density 每平方米车辆数，area不大于0时返回0
func (idx *Index) Density(area float64) float64 {
	if area <= 0 {
		return 0
	}
	return float64(idx.size) / area
}
