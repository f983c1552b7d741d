// 包 export 负责仪表板导出：将合并后的榜单写为 JSON 文件。
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"mac-app-monitor/internal/model"
)

// Build 组装导出结构；更新时间取各榜单中最新的一个。
func Build(sections []model.Section, prefs model.Preferences) model.Export {
	var updated time.Time
	for _, s := range sections {
		if s.UpdatedAt.After(updated) {
			updated = s.UpdatedAt
		}
	}
	if updated.IsZero() {
		updated = time.Now()
	}
	if sections == nil {
		sections = []model.Section{}
	}
	return model.Export{
		Country:   prefs.Country,
		Language:  prefs.Language,
		UpdatedAt: updated,
		Sections:  sections,
	}
}

// Write 以缩进格式写出 JSON。
func Write(w io.Writer, sections []model.Section, prefs model.Preferences) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Build(sections, prefs))
}

// ToJSON 将榜单写入 path；path 为 "-" 时写到 stdout。
func ToJSON(sections []model.Section, prefs model.Preferences, path string, stdout io.Writer) error {
	if path == "-" {
		return Write(stdout, sections, prefs)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := Write(f, sections, prefs); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
