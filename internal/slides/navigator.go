// Package slides 实现线性幻灯片导航：带过渡锁存的状态机，以及把键盘、滑动、滚轮输入
// 合并为单一导航决策的控制器。
package slides

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTransitionDuration 是默认的过渡时长。
const DefaultTransitionDuration = 700 * time.Millisecond

// Timer 是可取消的延迟回调，*time.Timer 满足该接口。
type Timer interface {
	Stop() bool
}

// Options 是导航器的构造参数。
type Options struct {
	TotalSlides        int
	TransitionDuration time.Duration
}

// Option 用于配置 Navigator。
type Option func(*Navigator)

// WithReducedMotion 设置"减少动态效果"信号，信号为真时过渡时长视为 0。
// 信号在加锁之前读取，可以回读导航器状态。
func WithReducedMotion(signal func() bool) Option {
	return func(n *Navigator) {
		if signal != nil {
			n.reducedMotion = signal
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(n *Navigator) {
		if logger != nil {
			n.log = logger
		}
	}
}

// State 是导航器某一时刻的快照。
type State struct {
	Current       int
	Transitioning bool
	Total         int
}

// Navigator 维护当前页索引与过渡锁存。过渡期间的导航请求直接丢弃，不排队。
type Navigator struct {
	total         int
	duration      time.Duration
	reducedMotion func() bool
	log           *zap.Logger
	afterFunc     func(time.Duration, func()) Timer

	mu            sync.Mutex
	current       int
	transitioning bool
	timer         Timer
	generation    uint64
	closed        bool
}

// NewNavigator 创建导航器，初始位于第 0 页且不在过渡中。
func NewNavigator(o Options, opts ...Option) *Navigator {
	n := &Navigator{
		total:         o.TotalSlides,
		duration:      o.TransitionDuration,
		reducedMotion: func() bool { return false },
		log:           zap.NewNop(),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	if n.duration < 0 {
		n.duration = 0
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// GoTo 请求跳转到 index，返回请求是否被接受。
// 过渡中、越界或导航器已关闭时请求被忽略。
func (n *Navigator) GoTo(index int) bool {
	d := n.Duration()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToLocked(index, d)
}

// Next 跳转到下一页，位于最后一页时不做任何事。
func (n *Navigator) Next() bool {
	d := n.Duration()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToLocked(n.current+1, d)
}

// Prev 跳转到上一页，位于第一页时不做任何事。
func (n *Navigator) Prev() bool {
	d := n.Duration()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToLocked(n.current-1, d)
}

// Current 返回当前页索引。
func (n *Navigator) Current() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// IsTransitioning 返回是否处于过渡锁存中。
func (n *Navigator) IsTransitioning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transitioning
}

// Total 返回幻灯片总数。
func (n *Navigator) Total() int {
	return n.total
}

// Snapshot 返回当前状态快照。
func (n *Navigator) Snapshot() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return State{Current: n.current, Transitioning: n.transitioning, Total: n.total}
}

// Duration 返回下一次过渡将使用的时长，已考虑减少动态效果信号。
// 不持有 n.mu。
func (n *Navigator) Duration() time.Duration {
	if n.reducedMotion() {
		return 0
	}
	return n.duration
}

// Close 取消挂起的锁存清除回调。Close 之后导航器不再接受请求，过期回调也不会再修改状态。
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.generation++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Navigator) goToLocked(index int, d time.Duration) bool {
	if n.closed || n.transitioning || index < 0 || index >= n.total {
		n.log.Debug("navigation ignored",
			zap.Int("target", index),
			zap.Int("current", n.current),
			zap.Bool("transitioning", n.transitioning),
			zap.Bool("closed", n.closed))
		return false
	}

	n.transitioning = true
	n.current = index
	n.log.Debug("navigated", zap.Int("index", index))

	if d <= 0 {
		n.transitioning = false
		return true
	}

	n.generation++
	gen := n.generation
	n.timer = n.afterFunc(d, func() { n.settle(gen) })
	return true
}

func (n *Navigator) settle(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || gen != n.generation {
		return
	}
	n.transitioning = false
	n.timer = nil
}
