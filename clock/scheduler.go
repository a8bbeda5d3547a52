package clock

import (
	"sync"
	"time"
)

// Scheduler 仿真步调度器
// 功能：由宿主提供的调度原语，仿真逻辑通过它安排下一步的执行，不依赖具体的调度方式
// 说明：Cancel之后ScheduleNext不再生效，已经开始执行的回调不受影响
type Scheduler interface {
	ScheduleNext(fn func())
	Cancel()
}

// SyncScheduler 同步调度器
// 功能：在调用Run的协程中依次执行排队的回调，直到队列为空或被取消，用于无界面运行与测试
type SyncScheduler struct {
	mu       sync.Mutex
	queue    []func()
	canceled bool
}

// NewSyncScheduler 创建同步调度器
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{}
}

// ScheduleNext 将回调加入队列
func (s *SyncScheduler) ScheduleNext(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.queue = append(s.queue, fn)
}

// Cancel 取消所有尚未执行的回调
func (s *SyncScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = true
	s.queue = nil
}

// Run 依次执行队列中的回调，回调中新加入的回调也会被执行
// 返回：执行的回调个数
func (s *SyncScheduler) Run() int {
	n := 0
	for {
		s.mu.Lock()
		if s.canceled || len(s.queue) == 0 {
			s.mu.Unlock()
			return n
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
		n++
	}
}

// TimerScheduler 墙钟调度器
// 功能：每个回调在固定的墙钟间隔后由独立的定时器协程执行，用于按实时节奏运行
type TimerScheduler struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	canceled bool
}

// NewTimerScheduler 创建墙钟调度器，interval不大于0时尽快执行
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	return &TimerScheduler{interval: max(interval, 0)}
}

// ScheduleNext 在interval后执行回调
func (s *TimerScheduler) ScheduleNext(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		canceled := s.canceled
		s.mu.Unlock()
		if !canceled {
			fn()
		}
	})
}

// Cancel 停止尚未触发的定时器
func (s *TimerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
