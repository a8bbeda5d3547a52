package task

import "sync"

// Runner 持有至多一个活动的仿真
// 功能：启动新仿真前先停止旧仿真，避免两个循环同时修改路网的信号灯状态
type Runner struct {
	mu      sync.Mutex
	current *Simulation
}

// NewRunner 创建Runner
func NewRunner() *Runner {
	return &Runner{}
}

// Start 停止当前仿真并启动sim
func (r *Runner) Start(sim *Simulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current != sim {
		r.current.Stop()
	}
	r.current = sim
	return sim.Start()
}

// Stop 停止当前仿真
func (r *Runner) Stop() {
	if sim := r.Current(); sim != nil {
		sim.Stop()
	}
}

// Current 当前仿真，可能已结束；从未启动过时为nil
func (r *Runner) Current() *Simulation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
