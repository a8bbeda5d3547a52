package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/clock"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/spatial"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/optimizer"
	"github.com/tsinghua-fib-lab/flocksim-go/utils"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/container"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

// Status 仿真运行状态
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Simulation 仿真任务上下文
// 功能：持有一次仿真运行的全部状态，包括时钟、路网、车辆、空间索引与指标历史
// 说明：状态迁移为 idle → running → (stopped | completed)；每一步由调度器回调tick执行，
// 步内的计算持有互斥锁，观察者回调在锁外执行
type Simulation struct {
	id        uuid.UUID
	cfg       SimulationConfig
	network   *road.Network
	scheduler clock.Scheduler
	observers []Observer

	mu     sync.Mutex
	status Status
	done   chan struct{}
	once   sync.Once

	clock      *clock.Clock
	engine     *randengine.Engine
	index      *spatial.Index
	adjuster   *optimizer.Adjuster
	vehicles   []*vehicle.Vehicle
	vehicleMap map[int32]*vehicle.Vehicle
	entries    []int32
	exits      []int32
	laneLength float64 // 全部车道总长度（米），用于计算占用率

	weights        entity.FlockingWeights // 当前全局集群权重
	totalDistance  float64
	completedTrips int
	latest         Metrics
	history        *container.Ring[Metrics]
	result         *Result
}

// New 创建仿真任务
// 参数：cfg-仿真配置，network-路网（运行期间信号灯状态会被修改），scheduler-步调度器，observers-观察者
func New(cfg SimulationConfig, network *road.Network, scheduler clock.Scheduler, observers ...Observer) *Simulation {
	cfg = cfg.withDefaults()
	return &Simulation{
		id:        uuid.New(),
		cfg:       cfg,
		network:   network,
		scheduler: scheduler,
		observers: observers,
		done:      make(chan struct{}),
		weights:   cfg.Weights,
	}
}

// ID 运行ID
func (s *Simulation) ID() string {
	return s.id.String()
}

// Config 仿真配置
func (s *Simulation) Config() SimulationConfig {
	return s.cfg
}

// Status 当前状态
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done 仿真结束（完成或停止）时关闭的通道
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

// Wait 等待仿真结束
func (s *Simulation) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulation) closeDone() {
	s.once.Do(func() { close(s.done) })
}

// Start 启动仿真
// 功能：校验配置与路网，放置车辆，并安排第一步
// 返回：运行中重复调用直接返回nil；配置错误返回ErrConfiguration，仿真不会开始；已结束的仿真不能再次启动
func (s *Simulation) Start() error {
	if started, err := s.start(); err != nil || !started {
		return err
	}
	log.Infof("simulation %s started: %d/%d vehicles placed, %d steps, flocking=%v, weather=%v",
		s.id, s.placed(), s.cfg.FleetSize(), s.clock.END_STEP, s.cfg.Flocking, s.cfg.Weather)
	s.scheduler.ScheduleNext(s.tick)
	return nil
}

func (s *Simulation) start() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusRunning:
		return false, nil
	case StatusStopped, StatusCompleted:
		return false, fmt.Errorf("simulation %s already %v", s.id, s.status)
	}
	if err := s.init(); err != nil {
		return false, err
	}
	s.status = StatusRunning
	return true, nil
}

// init 初始化运行状态
// 算法说明：
// 1. 校验配置与路网（至少一个入口节点）
// 2. 初始化时钟、随机数引擎、空间索引、权重调节器与指标历史
// 3. 按车队配置创建车辆，在总尝试次数预算内逐辆放置，放置失败的车辆保持等待状态
func (s *Simulation) init() error {
	if err := s.cfg.validate(); err != nil {
		return err
	}
	if s.network == nil {
		return fmt.Errorf("%w: no road network", entity.ErrConfiguration)
	}
	if err := s.network.Validate(); err != nil {
		return err
	}
	s.entries = s.network.NodesOfKind(entity.NodeEntry)
	s.exits = s.network.NodesOfKind(entity.NodeExit)
	if len(s.entries) == 0 {
		return fmt.Errorf("%w: network has no entry node", entity.ErrConfiguration)
	}
	s.laneLength = lo.SumBy(s.network.Edges(), func(e *road.Edge) float64 {
		if e.Bidirectional {
			return 2 * e.Length * float64(e.Lanes)
		}
		return e.Length * float64(e.Lanes)
	})
	log.Infof("network: %d nodes, %d edges, %d entries, %d exits, %d strongly connected components",
		len(s.network.NodeIDs()), len(s.network.Edges()), len(s.entries), len(s.exits),
		s.network.StronglyConnectedComponents())

	s.clock = clock.New(s.cfg.Step, s.cfg.Duration)
	s.engine = randengine.New(s.cfg.Seed)
	s.index = spatial.New(s.cfg.CellSize)
	if s.cfg.ParameterAdjustment {
		s.adjuster = optimizer.New(s.engine)
	}
	s.history = container.NewRing[Metrics](s.cfg.HistorySize)

	types := s.cfg.fleetTypes()
	s.vehicles = make([]*vehicle.Vehicle, len(types))
	s.vehicleMap = make(map[int32]*vehicle.Vehicle, len(types))
	for i, t := range types {
		v := vehicle.New(int32(i), t, s.cfg.Weights)
		s.vehicles[i] = v
		s.vehicleMap[v.ID] = v
	}
	budget := len(types) * s.cfg.SpawnAttempts
	for _, v := range s.vehicles {
		for budget > 0 {
			budget--
			err := s.respawn(v)
			if err == nil {
				break
			}
			log.Debugf("place vehicle %d: %v", v.ID, err)
		}
	}
	s.latest = aggregate(0, 0, s.vehicles, 0, 0, s.weights)
	return nil
}

func (s *Simulation) placed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.CountBy(s.vehicles, func(v *vehicle.Vehicle) bool { return !v.Waiting() })
}

// Stop 停止仿真
// 功能：取消后续的步调度，任何状态下均可调用且可重复调用；不会触发OnComplete
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}
	s.status = StatusStopped
	s.scheduler.Cancel()
	s.closeDone()
	log.Infof("simulation %s stopped at step %d", s.id, s.clock.Step)
}

// Latest 最新一步的指标
func (s *Simulation) Latest() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// History 指标历史（从旧到新）
func (s *Simulation) History() []Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.Values()
}

// Vehicles 车辆快照，ids为空时返回全部车辆
// 返回：找到的车辆快照与不存在的ID
func (s *Simulation) Vehicles(ids []int32) ([]vehicle.Snapshot, []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, missing := utils.FindByID(s.vehicleMap, s.vehicles, ids)
	return lo.Map(found, func(v *vehicle.Vehicle, _ int) vehicle.Snapshot { return v.Snapshot() }), missing
}

// Progress 当前步数与仿真时间
func (s *Simulation) Progress() (step int64, t float64, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock == nil {
		return 0, 0, 0
	}
	return s.clock.Step, s.clock.T, s.clock.Progress()
}

// Result 仿真结果
// 返回：完成时为最终结果；已停止时为截至停止时刻的结果；未启动时ok为false
func (s *Simulation) Result() (result Result, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.result != nil:
		return *s.result, true
	case s.status == StatusStopped:
		return s.buildResult(), true
	default:
		return Result{}, false
	}
}

// buildResult 汇总结果，调用方持有锁
func (s *Simulation) buildResult() Result {
	final := s.latest
	baseline := final
	if s.cfg.Flocking {
		baseline = SyntheticBaseline(final)
	}
	return Result{
		ID:         s.id.String(),
		Scenario:   s.cfg.Scenario,
		Flocking:   s.cfg.Flocking,
		Weather:    s.cfg.Weather.String(),
		Duration:   s.clock.T,
		Final:      final,
		Baseline:   baseline,
		Comparison: CompareMetrics(final, baseline),
		ROI:        ProjectROI(final, baseline, s.clock.T),
		History:    s.history.Values(),
	}
}
