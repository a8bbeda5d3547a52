package task

import (
	"flag"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/optimizer"
)

const (
	learnInterval = 10 // 权重调节器的学习间隔（步）
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：推进时钟与信号灯，重建空间索引，按上一步指标调节集群权重
func (s *Simulation) prepare() {
	s.clock.Tick()
	dt := s.clock.DT
	if *heartBeatInterval > 0 && s.clock.Step%int64(*heartBeatInterval) == 0 {
		hour, minute, second := s.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) active=%d avg_speed=%.2f trips=%d",
			s.clock.Step, hour, minute, second,
			s.latest.ActiveVehicles, s.latest.AverageSpeed, s.completedTrips,
		)
	}
	s.network.UpdateLights(dt)
	s.index.Rebuild(s.clock.Step, s.vehicles)

	if s.adjuster != nil && s.cfg.Flocking {
		density := 0.
		if s.laneLength > 0 {
			density = float64(s.index.Size()) * spacingPerVehicle / s.laneLength
		}
		s.weights = s.adjuster.Adjust(s.cfg.Weights, density, s.latest.AverageSpeed)
		for _, v := range s.vehicles {
			v.Weights = s.weights
		}
		if s.clock.Step%learnInterval == 0 {
			s.adjuster.Learn(s.latest.AverageSpeed/optimizer.ReferenceSpeed, s.latest.CongestionLevel)
		}
	}
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 并行：对所有非等待车辆基于本步的空间索引计算控制决策（只读）
// 2. 串行：依次应用决策，积分运动学，推进路径进度，必要时重生
// 3. 等待中的车辆尝试重生
func (s *Simulation) update() {
	dt := s.clock.DT
	active := lo.Filter(s.vehicles, func(v *vehicle.Vehicle, _ int) bool { return !v.Waiting() })
	plans := parallel.GoMap(active, func(v *vehicle.Vehicle) plan { return s.decide(v) })

	for i, v := range active {
		p := plans[i]
		if p.respawn {
			if p.reason != nil {
				log.Warnf("respawn vehicle %d: %v", v.ID, p.reason)
			}
			if err := s.respawn(v); err != nil {
				log.Debugf("respawn vehicle %d deferred: %v", v.ID, err)
			}
			continue
		}
		v.TargetSpeed = p.targetSpeed
		v.DesiredVelocity = p.desired
		v.SteeringForce = p.force

		before := v.Distance
		braking := false
		if p.mustStop {
			braking, _ = v.ApplyBraking(p.stopDistance, dt)
		}
		if !braking {
			v.Integrate(p.desiredSpeed, p.desiredHeading, dt)
		}
		s.totalDistance += v.Distance - before
		v.UpdateETA(p.remaining)

		if arrived(v, p.prev, p.target, dt) {
			v.RouteIndex++
			if v.RouteIndex >= len(v.Route)-1 {
				v.Trips++
				s.completedTrips++
				if err := s.respawn(v); err != nil {
					log.Debugf("respawn vehicle %d deferred: %v", v.ID, err)
				}
			}
		}
	}

	for _, v := range s.vehicles {
		if v.Waiting() {
			if err := s.respawn(v); err != nil {
				log.Debugf("place vehicle %d deferred: %v", v.ID, err)
			}
		}
	}
}

// tick 执行一步
// 功能：准备、更新、汇总指标并通知观察者；到达结束步时生成结果并触发OnComplete，否则安排下一步
// 说明：已停止的仿真不再执行；本步已计算的结果在Stop之后仍会送达观察者
func (s *Simulation) tick() {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}
	s.prepare()
	s.update()
	s.latest = aggregate(s.clock.Step, s.clock.T, s.vehicles, s.totalDistance, s.completedTrips, s.weights)
	s.history.Push(s.latest)
	metrics := s.latest
	snapshots := lo.Map(s.vehicles, func(v *vehicle.Vehicle, _ int) vehicle.Snapshot { return v.Snapshot() })
	finished := s.clock.Done()
	var result Result
	if finished {
		s.status = StatusCompleted
		result = s.buildResult()
		s.result = &result
	}
	s.mu.Unlock()

	for _, o := range s.observers {
		notify("tick", func() error { return o.OnTick(snapshots, metrics) })
	}
	if finished {
		for _, o := range s.observers {
			notify("complete", func() error { return o.OnComplete(result) })
		}
		s.closeDone()
		log.Infof("simulation %s completed: %d steps, %d trips, avg speed %.2f m/s, improvement %.1f%%",
			s.id, metrics.Step, metrics.CompletedTrips, metrics.AverageSpeed, result.Comparison.Improvement)
		return
	}
	if s.Status() == StatusRunning {
		s.scheduler.ScheduleNext(s.tick)
	}
}
