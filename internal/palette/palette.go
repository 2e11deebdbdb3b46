// Package palette 实现可搜索的命令面板。面板打开时作为模态层，屏蔽幻灯片导航输入。
package palette

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ToggleShortcut 是打开/关闭面板的快捷键。
const ToggleShortcut = "ctrl+k"

// Command 是面板中的一项可执行命令。
type Command struct {
	ID       string
	Label    string
	Shortcut string
	Action   func() error
}

// Option 用于配置 Palette。
type Option func(*Palette)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(p *Palette) {
		if logger != nil {
			p.log = logger
		}
	}
}

// Palette 维护打开状态、搜索词与选中项。
type Palette struct {
	commands []Command
	log      *zap.Logger

	mu       sync.Mutex
	open     bool
	query    string
	selected int
}

// New 创建命令面板。
func New(commands []Command, opts ...Option) *Palette {
	p := &Palette{
		commands: append([]Command(nil), commands...),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsShortcut 判断按键是否为面板切换快捷键。
func IsShortcut(key string) bool {
	return strings.EqualFold(key, ToggleShortcut)
}

// Open 打开面板并重置搜索词与选中项。
func (p *Palette) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.query = ""
	p.selected = 0
}

// Close 关闭面板。
func (p *Palette) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
}

// Toggle 切换面板的打开状态。
func (p *Palette) Toggle() {
	if p.IsOpen() {
		p.Close()
		return
	}
	p.Open()
}

// IsOpen 返回面板是否打开。
func (p *Palette) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Query 返回当前搜索词。
func (p *Palette) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// SetQuery 更新搜索词，选中项回到第一项。
func (p *Palette) SetQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.query = q
	p.selected = 0
}

// Selected 返回选中项在过滤结果中的下标。
func (p *Palette) Selected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Filtered 返回匹配当前搜索词的命令。匹配标签或快捷键，忽略大小写；空白搜索词返回全部命令。
func (p *Palette) Filtered() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filteredLocked()
}

func (p *Palette) filteredLocked() []Command {
	if strings.TrimSpace(p.query) == "" {
		return append([]Command(nil), p.commands...)
	}
	q := strings.ToLower(p.query)
	var out []Command
	for _, cmd := range p.commands {
		if strings.Contains(strings.ToLower(cmd.Label), q) ||
			(cmd.Shortcut != "" && strings.Contains(strings.ToLower(cmd.Shortcut), q)) {
			out = append(out, cmd)
		}
	}
	return out
}

// MoveDown 选中下一项，已在末尾时不动。
func (p *Palette) MoveDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected < len(p.filteredLocked())-1 {
		p.selected++
	}
}

// MoveUp 选中上一项，已在开头时不动。
func (p *Palette) MoveUp() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected > 0 {
		p.selected--
	}
}

// Execute 执行选中的命令并关闭面板。没有匹配项时不做任何事，返回 false。
func (p *Palette) Execute() (bool, error) {
	p.mu.Lock()
	filtered := p.filteredLocked()
	if p.selected >= len(filtered) {
		p.mu.Unlock()
		return false, nil
	}
	cmd := filtered[p.selected]
	p.open = false
	p.mu.Unlock()

	p.log.Debug("execute command", zap.String("id", cmd.ID))
	if cmd.Action == nil {
		return true, nil
	}
	if err := cmd.Action(); err != nil {
		return true, fmt.Errorf("palette: command %s: %w", cmd.ID, err)
	}
	return true, nil
}

// HandleKey 处理面板打开时的按键，返回按键是否被面板消费。
// 单个可打印字符追加到搜索词，backspace 删除最后一个字符。
func (p *Palette) HandleKey(key string) (bool, error) {
	if !p.IsOpen() {
		return false, nil
	}
	switch key {
	case "up":
		p.MoveUp()
	case "down":
		p.MoveDown()
	case "enter":
		_, err := p.Execute()
		return true, err
	case "esc":
		p.Close()
	case "backspace":
		q := p.Query()
		if q != "" {
			_, size := utf8.DecodeLastRuneInString(q)
			p.SetQuery(q[:len(q)-size])
		}
	default:
		if utf8.RuneCountInString(key) == 1 {
			p.SetQuery(p.Query() + key)
		}
	}
	return true, nil
}
