// 随机数引擎，包装了golang.org/x/exp/rand，路网生成与车辆生成共用同一套接口，保证给定种子时结果可复现
package randengine

import (
	"flag"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于在不改配置的情况下调整随机序列
)

// Engine 随机数引擎（非线程安全，只在仿真主循环中使用）
type Engine struct {
	*rand.Rand
}

// New 创建随机数引擎
// 参数：seed-随机数种子，实际种子为seed+rand.seed_offset
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以概率p返回true
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// Uniform 返回[lo, hi)内均匀分布的浮点数
func (e *Engine) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*e.Float64()
}

// Pick 从切片中等概率取一个元素，切片为空时ok为false
func Pick[T any](e *Engine, data []T) (v T, ok bool) {
	if len(data) == 0 {
		return v, false
	}
	return data[e.Intn(len(data))], true
}

// PickOther 从切片中等概率取一个不等于except的元素
// 功能：用于选取与起点不同的终点
// 算法说明：先在去掉except后的候选集合中计数，再按下标抽取，避免拒绝采样的无界循环
func PickOther[T comparable](e *Engine, data []T, except T) (v T, ok bool) {
	n := 0
	for _, d := range data {
		if d != except {
			n++
		}
	}
	if n == 0 {
		return v, false
	}
	k := e.Intn(n)
	for _, d := range data {
		if d == except {
			continue
		}
		if k == 0 {
			return d, true
		}
		k--
	}
	logrus.Panicf("randengine: PickOther: index %d out of %d candidates", k, n)
	return v, false
}
