package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mac-app-monitor/internal/aggregate"
	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/cache"
	"mac-app-monitor/internal/config"
	"mac-app-monitor/internal/fetch"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
	"mac-app-monitor/internal/monitor"
	"mac-app-monitor/internal/relay"
	"mac-app-monitor/internal/rules"
	"mac-app-monitor/internal/store"
	"mac-app-monitor/internal/telemetry"
)

// app 为一次命令执行所需的全部组件。
type app struct {
	cfg     *config.Config
	rules   *rules.Rules
	fetcher *relay.Fetcher
	store   cache.Store
	sqlite  *store.SQLite // 内存存储时为 nil
	mon     *monitor.Monitor
	tel     *telemetry.Telemetry
}

// openApp 按配置依次初始化：日志 → 追踪 → 规则 → HTTP 客户端 → 取数器 → 存储 → Monitor。
// traceOut 为 TRACE: stdout 时 span 的输出目标。
func openApp(ctx context.Context, opts *options, traceOut io.Writer) (*app, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	logx.Setup(logx.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Locale: cfg.LogLocale,
		Color:  cfg.LogColor,
	})

	tel, err := telemetry.Setup(telemetry.Options{Mode: cfg.Trace, Output: traceOut})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, tel: tel}

	rl, err := rules.LoadOrDefault(opts.rulesPath)
	if err != nil {
		logx.Warnf("加载规则失败，使用内置规则：%v", err)
		rl = rules.Default()
	}

	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:     cfg.Proxy.HTTP,
		ProxyHTTPS:    cfg.Proxy.HTTPS,
		Timeout:       cfg.AttemptTimeout,
		Retry:         cfg.Concurrency.Retry,
		Backoff:       500 * time.Millisecond,
		RatePerSecond: cfg.Concurrency.Rate,
		Burst:         cfg.Concurrency.Sections + cfg.Concurrency.Lookups,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("http client: %w", err)
	}
	relays := make([]relay.Relay, 0, len(cfg.Relays))
	for _, r := range cfg.Relays {
		relays = append(relays, relay.Relay{Name: r.Name, Template: r.Template, Envelope: relay.Envelope(r.Envelope)})
	}
	f := relay.New(cl, relay.Options{
		Relays:         relays,
		DevRelay:       cfg.DevRelay,
		AttemptTimeout: cfg.AttemptTimeout,
		TracerProvider: tel.TracerProvider,
	})

	a.rules, a.fetcher = rl, f
	if cfg.Database.Type == "memory" {
		a.store = cache.NewMemory(0, 0)
	} else {
		sq, err := store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.sqlite, a.store = sq, sq
	}

	policy, err := aggregate.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mon, err = monitor.New(ctx, monitor.Deps{
		Fetcher: f,
		Store:   a.store,
		Rules:   rl,
		Prefs: model.Preferences{
			RefreshInterval: cfg.RefreshInterval,
			Language:        cfg.Language,
			Country:         cfg.Country,
		},
		Runner:      &aggregate.Runner{Concurrency: cfg.Concurrency.Sections},
		TTL:         cfg.CacheTTL,
		Policy:      policy,
		WebDisabled: cfg.WebScrape.Disabled,
		WebLimit:    cfg.WebScrape.Limit,
		Lookups:     cfg.Concurrency.Lookups,

		TracerProvider: tel.TracerProvider,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close 释放数据库连接并刷出未导出的 span。
func (a *app) Close() {
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			logx.Warnf("关闭数据库失败：%v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		logx.Warnf("关闭追踪失败：%v", err)
	}
}

// country 返回 flag 指定的国家，未指定时取偏好设置。
func (a *app) country(flag string) string {
	if flag != "" {
		return flag
	}
	return a.mon.Preferences().Country
}

// run 包装子命令：打开组件、执行、关闭。
func run(opts *options, fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func parseGenre(s string) (int, error) {
	id, ok := apple.ResolveGenre(s)
	if !ok {
		return 0, fmt.Errorf("unknown genre %q", s)
	}
	return id, nil
}
