package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 可选的仪表板刷新间隔（与排行榜缓存 TTL 无关）。
var RefreshIntervals = []time.Duration{
	1 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

const (
	DefaultRefreshInterval = 6 * time.Hour
	DefaultLanguage        = "en"
	DefaultCountry         = "us"
)

// Preferences 为用户偏好：刷新间隔/语言/国家。
type Preferences struct {
	RefreshInterval time.Duration `json:"-"`
	Language        string        `json:"language"`
	Country         string        `json:"country"`
}

// DefaultPreferences 返回默认偏好（6 小时 / en / us）。
func DefaultPreferences() Preferences {
	return Preferences{
		RefreshInterval: DefaultRefreshInterval,
		Language:        DefaultLanguage,
		Country:         DefaultCountry,
	}
}

// Validate 检查刷新间隔与语言取值。
func (p Preferences) Validate() error {
	ok := false
	for _, d := range RefreshIntervals {
		if p.RefreshInterval == d {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("refresh interval %s not one of 1h/6h/12h/24h", p.RefreshInterval)
	}
	switch p.Language {
	case "en", "zh":
	default:
		return fmt.Errorf("unsupported language %q", p.Language)
	}
	if len(strings.TrimSpace(p.Country)) != 2 {
		return fmt.Errorf("invalid country code %q", p.Country)
	}
	return nil
}

type prefsJSON struct {
	RefreshIntervalMs int64  `json:"refreshIntervalMs"`
	Language          string `json:"language"`
	Country           string `json:"country"`
}

// MarshalJSON 以毫秒持久化刷新间隔，与历史存储格式保持一致。
func (p Preferences) MarshalJSON() ([]byte, error) {
	return json.Marshal(prefsJSON{
		RefreshIntervalMs: p.RefreshInterval.Milliseconds(),
		Language:          p.Language,
		Country:           p.Country,
	})
}

func (p *Preferences) UnmarshalJSON(b []byte) error {
	var raw prefsJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.RefreshInterval = time.Duration(raw.RefreshIntervalMs) * time.Millisecond
	p.Language = raw.Language
	p.Country = raw.Country
	return nil
}
