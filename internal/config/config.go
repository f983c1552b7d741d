// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Country         string        `yaml:"COUNTRY"`
	Language        string        `yaml:"LANGUAGE"`
	RefreshInterval time.Duration `yaml:"REFRESH_INTERVAL"` // 仪表板刷新间隔 1h|6h|12h|24h
	CacheTTL        time.Duration `yaml:"CACHE_TTL"`        // 排行榜缓存有效期
	AttemptTimeout  time.Duration `yaml:"ATTEMPT_TIMEOUT"`  // 单次直连/代理尝试的超时
	MergePolicy     string        `yaml:"MERGE_POLICY"`     // prefer-non-empty|prefer-rss
	WebScrape       WebScrape     `yaml:"WEB_SCRAPE"`
	Relays          []Relay       `yaml:"RELAYS"`
	DevRelay        string        `yaml:"DEV_RELAY"` // 本地开发转发地址，如 http://localhost:3000
	Database        Database      `yaml:"DATABASE"`
	Concurrency     Concurrency   `yaml:"CONCURRENCY"`
	Proxy           Proxy         `yaml:"PROXY"`
	LogLevel        string        `yaml:"LOG_LEVEL"`
	LogFormat       string        `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale       string        `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor        string        `yaml:"LOG_COLOR"`  // auto|always|never
	Trace           string        `yaml:"TRACE"`      // off|stdout
}

// WebScrape 控制发现页抓取路径。
type WebScrape struct {
	Disabled bool `yaml:"disabled"`
	Limit    int  `yaml:"limit"` // 每个榜单最多查询的应用数
}

// Relay 为一个 CORS 转发服务：template 中的 {url} 会被替换为转义后的目标地址。
type Relay struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Envelope string `yaml:"envelope"` // passthrough|contents
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)|memory
	DSN  string `yaml:"dsn"`  // ./monitor.db
}

type Concurrency struct {
	Sections int     `yaml:"sections"` // 榜单并发上限
	Lookups  int     `yaml:"lookups"`  // 详情查询并发上限
	Retry    int     `yaml:"retry"`    // 单次尝试内的重试次数，默认 0
	Rate     float64 `yaml:"rate"`     // 每秒请求数上限，0 表示不限制
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// DefaultRelays 为内置的转发服务，按优先级排列。
func DefaultRelays() []Relay {
	return []Relay{
		{Name: "corsproxy", Template: "https://corsproxy.io/?{url}", Envelope: "passthrough"},
		{Name: "allorigins", Template: "https://api.allorigins.win/get?url={url}", Envelope: "contents"},
		{Name: "codetabs", Template: "https://api.codetabs.com/v1/proxy?quest={url}", Envelope: "passthrough"},
	}
}

// Default 返回填充默认值后的配置（无配置文件时使用）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadOrDefault 在配置文件不存在时回退到默认配置，其它错误照常返回。
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.Country == "" {
		c.Country = "us"
	}
	c.Country = strings.ToLower(c.Country)
	if len(c.Country) != 2 {
		return fmt.Errorf("COUNTRY must be a 2-letter code: %q", c.Country)
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Language != "en" && c.Language != "zh" {
		return fmt.Errorf("unsupported LANGUAGE: %s", c.Language)
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 6 * time.Hour
	}
	switch c.RefreshInterval {
	case time.Hour, 6 * time.Hour, 12 * time.Hour, 24 * time.Hour:
	default:
		return fmt.Errorf("REFRESH_INTERVAL must be one of 1h/6h/12h/24h, got %s", c.RefreshInterval)
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must be >= 0")
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 12 * time.Second
	}
	if c.MergePolicy == "" {
		c.MergePolicy = "prefer-non-empty"
	}
	if c.MergePolicy != "prefer-non-empty" && c.MergePolicy != "prefer-rss" {
		return fmt.Errorf("unsupported MERGE_POLICY: %s", c.MergePolicy)
	}
	if c.WebScrape.Limit < 0 {
		return errors.New("WEB_SCRAPE.limit must be >= 0")
	}
	if c.WebScrape.Limit == 0 {
		c.WebScrape.Limit = 20
	}
	if len(c.Relays) == 0 {
		c.Relays = DefaultRelays()
	}
	for i, r := range c.Relays {
		if !strings.Contains(r.Template, "{url}") {
			return fmt.Errorf("RELAYS[%d] template must contain {url}", i)
		}
		if r.Envelope == "" {
			c.Relays[i].Envelope = "passthrough"
		} else if r.Envelope != "passthrough" && r.Envelope != "contents" {
			return fmt.Errorf("RELAYS[%d] unsupported envelope: %s", i, r.Envelope)
		}
		if r.Name == "" {
			c.Relays[i].Name = fmt.Sprintf("relay%d", i+1)
		}
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "memory" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./monitor.db"
	}
	if c.Concurrency.Sections <= 0 {
		c.Concurrency.Sections = 3
	}
	if c.Concurrency.Lookups <= 0 {
		c.Concurrency.Lookups = 4
	}
	if c.Concurrency.Retry < 0 {
		c.Concurrency.Retry = 0
	}
	if c.Concurrency.Rate < 0 {
		return errors.New("CONCURRENCY.rate must be >= 0")
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	c.Trace = strings.ToLower(strings.TrimSpace(c.Trace))
	if c.Trace == "" {
		c.Trace = "off"
	}
	if c.Trace != "off" && c.Trace != "stdout" {
		return fmt.Errorf("unsupported TRACE: %s", c.Trace)
	}
	return nil
}
