package container

import "sync"

// Ring 定长环形缓冲区
// 功能：保存最近capacity个元素，写满后覆盖最旧的元素
// 说明：读写均加锁，可在仿真线程写入的同时由RPC线程读取
type Ring[T any] struct {
	mu    sync.RWMutex
	data  []T
	start int // 最旧元素的下标
	size  int
}

// NewRing 创建环形缓冲区，capacity不大于0时panic
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		log.Panicf("ring capacity must be positive, got %d", capacity)
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Cap 容量
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Len 当前元素个数
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Push 追加元素，满时丢弃最旧的元素
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size < len(r.data) {
		r.data[(r.start+r.size)%len(r.data)] = v
		r.size++
		return
	}
	r.data[r.start] = v
	r.start = (r.start + 1) % len(r.data)
}

// Last 最新的元素
func (r *Ring[T]) Last() (v T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.size == 0 {
		return v, false
	}
	return r.data[(r.start+r.size-1)%len(r.data)], true
}

// Values 按写入顺序（从旧到新）返回所有元素的拷贝
func (r *Ring[T]) Values() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}
