package slides

import (
	"math"

	"go.uber.org/zap"
)

const (
	// DefaultSwipeThreshold 是触发翻页的最小水平滑动距离。
	DefaultSwipeThreshold = 50.0
	// DefaultWheelThreshold 是单次滚轮事件触发翻页的最小幅度。
	DefaultWheelThreshold = 30.0
)

// Direction 是输入适配器归一化后的导航意图。
type Direction int

const (
	None Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// KeyMap 把按键名称映射到导航方向。
type KeyMap struct {
	Forward  []string
	Backward []string
}

// DefaultKeyMap 返回默认键位：右方向键与空格前进，左方向键后退。
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Forward:  []string{"right", " "},
		Backward: []string{"left"},
	}
}

// Resolve 返回按键对应的方向，未绑定的按键返回 None。
func (k KeyMap) Resolve(key string) Direction {
	for _, f := range k.Forward {
		if f == key {
			return Forward
		}
	}
	for _, b := range k.Backward {
		if b == key {
			return Backward
		}
	}
	return None
}

// SwipeTracker 记录一次触摸手势的起点并在结束时判定方向。
type SwipeTracker struct {
	threshold float64
	startX    float64
	active    bool
}

// NewSwipeTracker 创建滑动跟踪器，threshold 不大于 0 时使用默认值。
func NewSwipeTracker(threshold float64) *SwipeTracker {
	if threshold <= 0 {
		threshold = DefaultSwipeThreshold
	}
	return &SwipeTracker{threshold: threshold}
}

// Begin 记录手势起点。
func (s *SwipeTracker) Begin(x float64) {
	s.startX = x
	s.active = true
}

// Active 返回是否有未结束的手势。
func (s *SwipeTracker) Active() bool {
	return s.active
}

// End 结束手势并返回方向。向左滑动（起点减终点为正）表示前进。
// 无论结果如何，跟踪状态都会被重置。
func (s *SwipeTracker) End(x float64) Direction {
	if !s.active {
		return None
	}
	diff := s.startX - x
	s.Reset()

	switch {
	case diff > s.threshold:
		return Forward
	case diff < -s.threshold:
		return Backward
	default:
		return None
	}
}

// Reset 丢弃未结束的手势。
func (s *SwipeTracker) Reset() {
	s.startX = 0
	s.active = false
}

// WheelAdapter 把单次滚轮事件转换为方向。幅度较大的轴决定结果，相等时以纵轴为准。
type WheelAdapter struct {
	Threshold float64
}

// Resolve 返回滚轮事件对应的方向，幅度不超过阈值时返回 None。
func (w WheelAdapter) Resolve(dx, dy float64) Direction {
	threshold := w.Threshold
	if threshold <= 0 {
		threshold = DefaultWheelThreshold
	}

	delta := dy
	if math.Abs(dx) > math.Abs(dy) {
		delta = dx
	}
	if math.Abs(delta) <= threshold {
		return None
	}
	if delta > 0 {
		return Forward
	}
	return Backward
}

// Navigable 是 Controller 驱动的导航目标。
type Navigable interface {
	Next() bool
	Prev() bool
}

// ControllerOption 用于配置 Controller。
type ControllerOption func(*Controller)

// WithKeyMap 替换默认键位。
func WithKeyMap(k KeyMap) ControllerOption {
	return func(c *Controller) { c.keys = k }
}

// WithSwipeThreshold 设置滑动阈值。
func WithSwipeThreshold(threshold float64) ControllerOption {
	return func(c *Controller) { c.swipe = NewSwipeTracker(threshold) }
}

// WithWheelThreshold 设置滚轮阈值。
func WithWheelThreshold(threshold float64) ControllerOption {
	return func(c *Controller) { c.wheel = WheelAdapter{Threshold: threshold} }
}

// WithModalSignal 设置模态信号，信号为真时所有导航输入都被忽略。
func WithModalSignal(open func() bool) ControllerOption {
	return func(c *Controller) {
		if open != nil {
			c.modalOpen = open
		}
	}
}

// WithControllerLogger 设置日志记录器。
func WithControllerLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Controller 合并键盘、滑动、滚轮三种输入，统一交给一个仲裁点调用导航器。
// Controller 本身不是并发安全的，应在单一事件循环中使用。
type Controller struct {
	nav       Navigable
	keys      KeyMap
	swipe     *SwipeTracker
	wheel     WheelAdapter
	modalOpen func() bool
	log       *zap.Logger
}

// NewController 创建输入控制器。
func NewController(nav Navigable, opts ...ControllerOption) *Controller {
	c := &Controller{
		nav:       nav,
		keys:      DefaultKeyMap(),
		swipe:     NewSwipeTracker(DefaultSwipeThreshold),
		wheel:     WheelAdapter{Threshold: DefaultWheelThreshold},
		modalOpen: func() bool { return false },
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatch 是所有输入的仲裁点，返回导航器是否接受了请求。
func (c *Controller) Dispatch(d Direction) bool {
	if d == None {
		return false
	}
	if c.modalOpen() {
		c.log.Debug("input suppressed by modal", zap.Stringer("direction", d))
		return false
	}
	switch d {
	case Forward:
		return c.nav.Next()
	case Backward:
		return c.nav.Prev()
	}
	return false
}

// HandleKey 处理按键事件。
func (c *Controller) HandleKey(key string) bool {
	return c.Dispatch(c.keys.Resolve(key))
}

// SwipeStart 记录手势起点。
func (c *Controller) SwipeStart(x float64) {
	c.swipe.Begin(x)
}

// SwipeEnd 结束手势并派发结果。
func (c *Controller) SwipeEnd(x float64) bool {
	return c.Dispatch(c.swipe.End(x))
}

// HandleWheel 处理滚轮事件。
func (c *Controller) HandleWheel(dx, dy float64) bool {
	return c.Dispatch(c.wheel.Resolve(dx, dy))
}
