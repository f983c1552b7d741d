// 包 relay 实现多级回退的取数器：先直连（或开发转发），
// 再按固定顺序依次尝试各 CORS 转发服务，命中第一个可用结果即返回。
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mac-app-monitor/internal/logx"
)

const tracerName = "mac-app-monitor/internal/relay"

// Mode 决定响应体的校验方式。
type Mode int

const (
	ModeJSON Mode = iota
	ModeText
)

func (m Mode) accept() string {
	if m == ModeJSON {
		return "application/json"
	}
	return "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
}

// Envelope 为转发服务包裹原始响应的方式。
type Envelope string

const (
	EnvelopePassthrough Envelope = "passthrough"
	EnvelopeContents    Envelope = "contents" // {"contents": "<原始响应>"}
)

// Relay 为一个转发服务定义。
type Relay struct {
	Name     string
	Template string // 含 {url} 占位符
	Envelope Envelope
}

// Wrap 将目标地址填入模板。
func (r Relay) Wrap(target string) string {
	return strings.ReplaceAll(r.Template, "{url}", url.QueryEscape(target))
}

// Getter 为单次 HTTP 读取，fetch.Client 满足该接口。
type Getter interface {
	Read(ctx context.Context, rawURL string, accept string) ([]byte, error)
}

// Options 为取数器构造参数。
type Options struct {
	Relays         []Relay
	DevRelay       string        // 非空时首个尝试改走本地转发，如 http://localhost:3000
	AttemptTimeout time.Duration // 单次尝试超时，默认 12s
	// TracerProvider 为空时使用全局 provider；每次尝试记录一个 relay.attempt span。
	TracerProvider trace.TracerProvider
}

// Fetcher 为多级回退取数器。
type Fetcher struct {
	get     Getter
	relays  []Relay
	dev     string
	timeout time.Duration
	tracer  trace.Tracer
}

// New 创建取数器。
func New(get Getter, opts Options) *Fetcher {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 12 * time.Second
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	return &Fetcher{
		get:     get,
		relays:  append([]Relay(nil), opts.Relays...),
		dev:     strings.TrimRight(opts.DevRelay, "/"),
		timeout: opts.AttemptTimeout,
		tracer:  opts.TracerProvider.Tracer(tracerName),
	}
}

// attempt 为一次具体的请求计划。
type attempt struct {
	name     string
	url      string
	envelope Envelope
}

// devPaths 为本地开发转发的路径映射（与前端开发服务器一致）。
var devPaths = map[string]string{
	"apps.apple.com":   "/proxy/apps",
	"itunes.apple.com": "/proxy/itunes",
}

// plan 生成固定顺序的尝试列表：直连（或开发转发）→ 各转发服务。
func (f *Fetcher) plan(target *url.URL) []attempt {
	first := attempt{name: "direct", url: target.String(), envelope: EnvelopePassthrough}
	if f.dev != "" {
		if prefix, ok := devPaths[target.Host]; ok {
			first = attempt{name: "dev", url: f.dev + prefix + target.RequestURI(), envelope: EnvelopePassthrough}
		}
	}
	out := []attempt{first}
	for _, r := range f.relays {
		env := r.Envelope
		if env == "" {
			env = EnvelopePassthrough
		}
		out = append(out, attempt{name: r.Name, url: r.Wrap(target.String()), envelope: env})
	}
	return out
}

// Fetch 按顺序尝试直连与转发，返回第一个格式合法的响应体。
// 各次尝试严格串行；全部失败时返回 *AllSourcesFailedError。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, mode Mode) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	attempts := f.plan(target)
	var lastErr error
	for i, a := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := f.try(ctx, a, mode)
		if err == nil {
			if i > 0 {
				logx.Debugf("经 %s 获取成功：%s", a.name, rawURL)
			}
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if i+1 < len(attempts) {
			logx.Warnf("[网络] %s 失败，尝试 %s：%s 错误=%v", a.name, attempts[i+1].name, rawURL, err)
		}
	}
	return nil, &AllSourcesFailedError{URL: rawURL, Attempts: len(attempts), Last: lastErr}
}

// try 执行单次尝试：超时控制 + 信封解包 + 格式校验。
func (f *Fetcher) try(ctx context.Context, a attempt, mode Mode) ([]byte, error) {
	ctx, span := f.tracer.Start(ctx, "relay.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("relay.name", a.name),
		attribute.String("relay.url", a.url),
	)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	logx.Debugf("[网络] 发起请求 (%s)：%s", a.name, a.url)
	raw, err := f.get.Read(ctx, a.url, mode.accept())
	if err == nil {
		raw, err = unwrap(raw, a.envelope, mode)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt failed")
		return nil, err
	}
	return raw, nil
}

// unwrap 按信封类型取出原始内容，并在 JSON 模式下校验格式。
func unwrap(raw []byte, env Envelope, mode Mode) ([]byte, error) {
	if env == EnvelopeContents {
		var wrapper struct {
			Contents *string `json:"contents"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		if wrapper.Contents == nil || *wrapper.Contents == "" {
			return nil, fmt.Errorf("%w: contents missing", ErrMalformedEnvelope)
		}
		raw = []byte(*wrapper.Contents)
		if mode == ModeJSON && !json.Valid(raw) {
			return nil, fmt.Errorf("%w: contents is not json", ErrMalformedEnvelope)
		}
		return raw, nil
	}
	if mode == ModeJSON && !json.Valid(raw) {
		return nil, errNotJSON
	}
	return raw, nil
}

// FetchJSON 以 JSON 模式取数并反序列化到 out。
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string, out any) error {
	b, err := f.Fetch(ctx, rawURL, ModeJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// FetchText 以文本模式取数（HTML/XML）。
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	b, err := f.Fetch(ctx, rawURL, ModeText)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var errNotJSON = errors.New("response is not valid json")
