package clock

import (
	"fmt"
	"math"
)

const stepTolerance = 1e-9

// Clock 仿真时钟
// 功能：管理仿真系统的逻辑时间推进，时间只随步数前进，与墙钟无关
// 说明：维护步长、当前步数、结束步数与当前时间
type Clock struct {
	DT       float64 // 每步逻辑时间（秒）
	END_STEP int64   // 结束步，模拟区间[0, END)

	T    float64 // 当前时间（秒）
	Step int64   // 已完成的步数
}

// New 创建时钟
// 功能：根据步长与仿真时长计算结束步
// 参数：dt-步长，duration-仿真时长（秒）
// 返回：初始化完成的时钟实例
// 算法说明：结束步 = ceil(duration / dt)，仿真时间覆盖完整的duration；
// 减去stepTolerance以免浮点除法误差（如0.3/0.1）多走一步
func New(dt, duration float64) *Clock {
	if dt <= 0 {
		log.Panicf("clock: dt must be positive, got %v", dt)
	}
	c := &Clock{
		DT:       dt,
		END_STEP: int64(math.Ceil(duration/dt - stepTolerance)),
	}
	c.Init()
	return c
}

// Init 重置时钟
func (c *Clock) Init() {
	c.Step = 0
	c.T = 0
}

// Tick 推进一步
func (c *Clock) Tick() {
	c.Step++
	c.T = float64(c.Step) * c.DT
}

// Done 是否已到达结束步
func (c *Clock) Done() bool {
	return c.Step >= c.END_STEP
}

// Progress 仿真进度[0,1]
func (c *Clock) Progress() float64 {
	if c.END_STEP <= 0 {
		return 1
	}
	return math.Min(float64(c.Step)/float64(c.END_STEP), 1)
}

// String 获取时钟的字符串表示（HH:MM:SS）
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
