// 包 rules 负责加载并提供网页解析规则（rules.yaml），
// 以预设名（国家代码或 default）组织发现页的链接选择器与榜单标签。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mac-app-monitor/internal/model"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个店面的解析规则集合。
type Preset struct {
	Discover *Discover `yaml:"discover"`
}

// Discover 描述发现页的解析方式：
// - anchor：链接元素选择器，支持 "||" 回退（如 "a || [role=link]"）
// - labels：榜单类型 → 页面上的标签文字
type Discover struct {
	Anchor string                       `yaml:"anchor"`
	Labels map[model.SectionType]string `yaml:"labels"`
}

// Default 返回内置规则（无 rules.yaml 时使用）。
func Default() *Rules {
	return &Rules{Presets: map[string]Preset{
		"default": {Discover: &Discover{
			Anchor: "a",
			Labels: map[model.SectionType]string{
				model.TopPaid: "Top Paid Apps",
				model.TopFree: "Top Free Apps",
			},
		}},
	}}
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	for name, p := range r.Presets {
		if p.Discover == nil {
			continue
		}
		for t := range p.Discover.Labels {
			if _, err := model.ParseSectionType(string(t)); err != nil {
				return nil, fmt.Errorf("rules %s preset %s: %w", path, name, err)
			}
		}
	}
	return &r, nil
}

// LoadOrDefault 文件不存在时回退到内置规则。
func LoadOrDefault(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	// 不区分大小写匹配
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	for _, v := range r.Presets {
		return v, true
	}
	return Preset{}, false
}

// Labels 返回指定店面要抓取的榜单标签，按 model.AllSectionTypes 顺序排列。
func (r *Rules) Labels(country string) (anchor string, types []model.SectionType, labels map[model.SectionType]string) {
	p, ok := r.GetPreset(country)
	if !ok || p.Discover == nil {
		return "", nil, nil
	}
	for _, t := range model.AllSectionTypes {
		if l := strings.TrimSpace(p.Discover.Labels[t]); l != "" {
			types = append(types, t)
		}
	}
	return p.Discover.Anchor, types, p.Discover.Labels
}
