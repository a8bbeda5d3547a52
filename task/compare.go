package task

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/flocksim-go/clock"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
)

// NetworkFactory 为每次运行提供独立的路网（信号灯状态随运行变化，不能共享）
type NetworkFactory func() (*road.Network, error)

// RunHeadless 以同步调度器尽快运行一次仿真直到完成
// 返回：完成时的结果；ctx取消时停止仿真并返回ctx的错误
func RunHeadless(ctx context.Context, cfg SimulationConfig, network *road.Network, observers ...Observer) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	scheduler := clock.NewSyncScheduler()
	sim := New(cfg, network, scheduler, observers...)
	if err := sim.Start(); err != nil {
		return Result{}, err
	}
	stop := context.AfterFunc(ctx, sim.Stop)
	defer stop()
	scheduler.Run()
	if sim.Status() != StatusCompleted {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("simulation %s ended in state %v", sim.ID(), sim.Status())
	}
	result, _ := sim.Result()
	return result, nil
}

// ABResult 集群控制开/关两次运行的对比
type ABResult struct {
	Flocking   Result     `bson:"flocking" json:"flocking"`
	Baseline   Result     `bson:"baseline" json:"baseline"`
	Comparison Comparison `bson:"comparison" json:"comparison"`
}

// Compare 以相同种子分别运行开启与关闭集群控制的仿真，给出实测的对比
// 说明：与结果中由固定系数合成的基线不同，这里的基线来自真实的第二次运行
func Compare(ctx context.Context, cfg SimulationConfig, networks NetworkFactory) (ABResult, error) {
	run := func(flocking bool) (Result, error) {
		network, err := networks()
		if err != nil {
			return Result{}, err
		}
		c := cfg
		c.Flocking = flocking
		return RunHeadless(ctx, c, network)
	}
	flock, err := run(true)
	if err != nil {
		return ABResult{}, fmt.Errorf("flocking run: %w", err)
	}
	base, err := run(false)
	if err != nil {
		return ABResult{}, fmt.Errorf("baseline run: %w", err)
	}
	return ABResult{
		Flocking:   flock,
		Baseline:   base,
		Comparison: CompareMetrics(flock.Final, base.Final),
	}, nil
}
