// 包 logx 是对标准库 slog 的薄封装：
// - 支持级别/格式/语言/颜色配置，输出目标可注入（便于测试）
// - pretty 格式提供中英文等级标签（[调试]/[信息]/[警告]/[错误]）
// - 通过 Debugf/Infof/Warnf/Errorf 暴露，业务代码不直接依赖 slog
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Options 为日志初始化参数，字段与 settings.yaml 的 LOG_* 一一对应。
type Options struct {
	Level  string    // debug|info|warn|error|off
	Format string    // pretty|json|text
	Locale string    // zh-CN|en
	Color  string    // auto|always|never
	Output io.Writer // 默认 os.Stderr
}

// levelOff 高于任何实际级别，用于静默输出。
const levelOff slog.Level = 100

// Setup 根据 Options 初始化全局日志器。
func Setup(o Options) {
	w := o.Output
	if w == nil {
		w = os.Stderr
	}
	lv := parseLevel(o.Level)
	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = NewPrettyHandler(w, lv, o.Locale, o.Color)
	}
	slog.SetDefault(slog.New(handler))
}

// parseLevel 将字符串级别解析为 slog.Level。
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return levelOff
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// PrettyHandler 面向人读的单行输出：时间 等级 消息 k=v...
type PrettyHandler struct {
	w      io.Writer
	level  slog.Level
	locale string
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

// NewPrettyHandler 创建 pretty Handler，locale 为空时使用中文标签。
func NewPrettyHandler(w io.Writer, lv slog.Level, locale string, colorMode string) *PrettyHandler {
	if locale == "" {
		locale = "zh-CN"
	}
	return &PrettyHandler{
		w:      w,
		level:  lv,
		locale: locale,
		color:  shouldColor(w, colorMode),
		mu:     &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.level < levelOff && l >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	lvl := levelLabel(h.locale, r.Level)
	if h.color {
		lvl = colorize(lvl, r.Level)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	write := func(key string, v slog.Value) {
		buf.WriteByte(' ')
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(v.String())
	}
	// WithAttrs 时已带上当时的分组前缀
	for _, a := range h.attrs {
		write(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(prefix+a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group == "" {
		cp.group = name
	} else {
		cp.group += "." + name
	}
	return &cp
}

// levelLabel 根据语言返回等级标签。
func levelLabel(locale string, l slog.Level) string {
	zh := strings.HasPrefix(strings.ToLower(locale), "zh")
	switch {
	case l < slog.LevelInfo:
		return pick(zh, "[调试]", "[DEBUG]")
	case l < slog.LevelWarn:
		return pick(zh, "[信息]", "[INFO]")
	case l < slog.LevelError:
		return pick(zh, "[警告]", "[WARN]")
	default:
		return pick(zh, "[错误]", "[ERROR]")
	}
}

func pick(zh bool, a, b string) string {
	if zh {
		return a
	}
	return b
}

// shouldColor 遵循 LOG_COLOR 与 NO_COLOR；auto 时仅对终端着色。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				return fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	return false
}

func colorize(s string, l slog.Level) string {
	var code string
	switch {
	case l < slog.LevelInfo:
		code = "90"
	case l < slog.LevelWarn:
		code = "36"
	case l < slog.LevelError:
		code = "33"
	default:
		code = "31"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}
