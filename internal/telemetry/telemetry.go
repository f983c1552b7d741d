// 包 telemetry 按配置安装 OpenTelemetry 的 TracerProvider。
// off 时返回 noop provider，stdout 时将 span 以 JSON 写到指定输出。
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ModeOff    = "off"
	ModeStdout = "stdout"
)

// Options 对应 settings.yaml 的 TRACE 配置。
type Options struct {
	Mode        string    // off|stdout
	ServiceName string    // 默认 mac-app-monitor
	Output      io.Writer // stdout 模式的输出，默认 os.Stderr
}

// Telemetry 持有已安装的 provider，退出前需 Shutdown 以刷出缓冲的 span。
type Telemetry struct {
	TracerProvider trace.TracerProvider
	sdk            *sdktrace.TracerProvider
}

// Setup 根据 Mode 创建 provider；stdout 模式同时设置为全局 provider。
func Setup(opts Options) (*Telemetry, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	switch mode {
	case "", ModeOff:
		return &Telemetry{TracerProvider: noop.NewTracerProvider()}, nil
	case ModeStdout:
	default:
		return nil, fmt.Errorf("unsupported trace mode: %s", opts.Mode)
	}

	if opts.ServiceName == "" {
		opts.ServiceName = "mac-app-monitor"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(opts.Output), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	return &Telemetry{TracerProvider: tp, sdk: tp}, nil
}

// Shutdown 刷出并关闭 provider；off 模式下无操作。
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.sdk == nil {
		return nil
	}
	return t.sdk.Shutdown(ctx)
}
