package task

import "github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"

// Observer 仿真输出的观察者
// 说明：回调在仿真线程中同步调用，但仿真不依赖其结果，返回的错误与panic只记录日志
type Observer interface {
	// OnTick 每步结束时调用，vehicles为全部车辆的快照（不截断）
	OnTick(vehicles []vehicle.Snapshot, metrics Metrics) error
	// OnComplete 仿真到达设定时长后调用一次，Stop不会触发
	OnComplete(result Result) error
}

// ObserverFuncs 用函数实现Observer，未设置的回调忽略
type ObserverFuncs struct {
	Tick     func(vehicles []vehicle.Snapshot, metrics Metrics) error
	Complete func(result Result) error
}

func (o ObserverFuncs) OnTick(vehicles []vehicle.Snapshot, metrics Metrics) error {
	if o.Tick == nil {
		return nil
	}
	return o.Tick(vehicles, metrics)
}

func (o ObserverFuncs) OnComplete(result Result) error {
	if o.Complete == nil {
		return nil
	}
	return o.Complete(result)
}

// notify 调用观察者，吞掉错误与panic
func notify(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("observer %s panicked: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		log.Errorf("observer %s failed: %v", name, err)
	}
}
