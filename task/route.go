package task

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/flocking"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
)

const (
	arrivalRadius     = 2.0 // 到达节点的判定半径（米）
	stopLineOffset    = 4.0 // 停车线到路口中心的距离（米）
	minCornerSpeed    = 3.0 // 转弯速度下限（米/秒）
	comfortDecel      = 2.5 // 进弯减速所用的舒适减速度（米/秒²）
	straightAngle     = 0.2 // 小于该转角（弧度）视为直行
	yellowMinSpeed    = 0.1 // 计算黄灯通过时间的速度下限
	spacingPerVehicle = 7.5 // 计算占用率时每辆车占用的车道长度（米）
)

// plan 单辆车在一步内的控制决策
// 说明：在并行阶段只读地计算，在串行阶段应用到车辆上
type plan struct {
	respawn bool  // 路径已结束或失效，需要重生
	reason  error // 路径失效的原因，路径正常结束时为nil

	prev, target   orb.Point // 当前路段的起点与终点位置
	targetSpeed    float64
	desired        orb.Point // 期望速度向量
	desiredSpeed   float64
	desiredHeading float64
	force          orb.Point // 集群合力

	mustStop     bool    // 是否需要在前方路口停车
	stopDistance float64 // 到停车线的距离
	remaining    float64 // 剩余路径长度
}

// turnAngle 从a经b到c的转角（弧度，[0, π]）
func turnAngle(a, b, c orb.Point) float64 {
	return math.Abs(entity.NormalizeAngle(entity.Heading(entity.Sub(c, b)) - entity.Heading(entity.Sub(b, a))))
}

// approachSpeed 进入下一个路口前允许的速度
// 算法说明：按路口转角确定过弯速度，再由舒适减速度反推当前距离下可行的最大速度
func (s *Simulation) approachSpeed(v *vehicle.Vehicle, targetSpeed, dist float64) float64 {
	if v.RouteIndex+2 >= len(v.Route) {
		return targetSpeed
	}
	a, b, c := s.network.Node(v.Route[v.RouteIndex]), s.network.Node(v.Route[v.RouteIndex+1]), s.network.Node(v.Route[v.RouteIndex+2])
	if a == nil || b == nil || c == nil {
		return targetSpeed
	}
	theta := turnAngle(a.Position, b.Position, c.Position)
	if theta < straightAngle {
		return targetSpeed
	}
	k := 1 - theta/math.Pi
	corner := math.Min(math.Max(targetSpeed*k*k, minCornerSpeed), targetSpeed)
	decel := math.Min(comfortDecel, v.Profile.MaxBraking)
	return math.Min(targetSpeed, math.Sqrt(corner*corner+2*decel*dist))
}

// decide 计算车辆本步的控制决策
// 功能：沿路径朝下一节点行驶，叠加集群转向力，并根据信号灯决定是否停车
// 说明：只读取车辆、路网与本步的空间索引，可并行调用
func (s *Simulation) decide(v *vehicle.Vehicle) plan {
	next, ok := v.NextNode()
	if !ok {
		return plan{respawn: true}
	}
	cur, target := s.network.Node(v.Route[v.RouteIndex]), s.network.Node(next)
	if cur == nil || target == nil {
		return plan{
			respawn: true,
			reason:  fmt.Errorf("%w: vehicle %d route %v references missing node", entity.ErrStateInconsistency, v.ID, v.Route),
		}
	}
	limit, _ := s.network.RouteSpeedLimit(cur.ID, next)
	p := plan{
		prev:        cur.Position,
		target:      target.Position,
		targetSpeed: v.Profile.TargetSpeed(limit, s.cfg.Weather.Friction()),
	}
	toTarget := entity.Sub(target.Position, v.Position)
	dist := entity.Norm(toTarget)
	heading := v.Heading
	if dist > 0 {
		heading = entity.Heading(toTarget)
	}
	speed := math.Min(p.targetSpeed, s.approachSpeed(v, p.targetSpeed, dist))
	p.desired = entity.Polar(speed, heading)
	if s.cfg.Flocking {
		radius := flocking.EffectiveWeights(v.Weights, v.Profile.Behavior).PerceptionRadius
		steering := flocking.ComputeSteering(v, s.index.NeighborsOf(v, radius), v.Weights)
		p.force = steering.Force
		p.desired = flocking.CapSpeed(entity.Add(p.desired, steering.Force), speed)
	}
	p.desiredSpeed = entity.Norm(p.desired)
	p.desiredHeading = heading
	if p.desiredSpeed > 0 {
		p.desiredHeading = entity.Heading(p.desired)
	}

	// 信号灯：红灯停车；黄灯在灯色结束前无法通过且来得及制动时停车
	p.stopDistance = dist - stopLineOffset
	if p.stopDistance > 0 {
		switch state, remaining := target.LightState(); state {
		case entity.LightRed:
			p.mustStop = true
		case entity.LightYellow:
			brakingDistance := v.Speed * v.Speed / (2 * v.Profile.MaxBraking)
			p.mustStop = dist/math.Max(v.Speed, yellowMinSpeed) > remaining && brakingDistance <= p.stopDistance
		}
	}
	p.remaining = dist + s.network.RouteLength(v.Route, v.RouteIndex+1)
	return p
}

// arrived 判断车辆是否已到达（或越过）当前路段终点
func arrived(v *vehicle.Vehicle, prev, target orb.Point, dt float64) bool {
	if planar.Distance(v.Position, target) <= math.Max(arrivalRadius, v.Speed*dt) {
		return true
	}
	seg, rest := entity.Sub(target, prev), entity.Sub(target, v.Position)
	return seg[0]*rest[0]+seg[1]*rest[1] <= 0
}

// respawn 为车辆分配新的路径
// 功能：随机选取入口作为起点，优先从出口中选取不同于起点的终点，寻路后将车辆放到起点
// 返回：失败时车辆保持原样，由下一步重试
func (s *Simulation) respawn(v *vehicle.Vehicle) error {
	start, ok := randengine.Pick(s.engine, s.entries)
	if !ok {
		return fmt.Errorf("%w: no entry node", entity.ErrConfiguration)
	}
	candidates := s.exits
	if len(candidates) == 0 {
		candidates = s.network.NodeIDs()
	}
	dest, ok := randengine.PickOther(s.engine, candidates, start)
	if !ok {
		return fmt.Errorf("%w: no destination other than %d", entity.ErrPathNotFound, start)
	}
	route, err := s.network.FindShortestPath(start, dest)
	if err != nil {
		return err
	}
	from, to := s.network.Node(route[0]), s.network.Node(route[1])
	v.Place(route, from.Position, entity.Heading(entity.Sub(to.Position, from.Position)))
	v.Weights = s.weights
	v.UpdateETA(s.network.RouteLength(route, 0))
	return nil
}
