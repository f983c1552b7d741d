package export_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/export"
	"mac-app-monitor/internal/model"
)

func TestToJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dashboard.json")
	older := time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)
	newer := older.Add(3 * time.Minute)
	sections := []model.Section{
		{Type: model.TopFree, Title: "免费应用榜", Items: []model.RankingItem{{ID: "1605585211", Rank: 1, Name: "汽水音乐"}}, Source: model.SourceRSS, UpdatedAt: older},
		{Type: model.TopPaid, Title: "付费应用榜", Items: []model.RankingItem{}, Error: "all sources failed", UpdatedAt: newer},
	}
	prefs := model.Preferences{RefreshInterval: time.Hour, Language: "zh", Country: "cn"}

	require.NoError(t, export.ToJSON(sections, prefs, out, nil))
	b, err := os.ReadFile(out)
	require.NoError(t, err)

	var e model.Export
	require.NoError(t, json.Unmarshal(b, &e))
	assert.Equal(t, "cn", e.Country)
	assert.Equal(t, "zh", e.Language)
	assert.True(t, newer.Equal(e.UpdatedAt))
	require.Len(t, e.Sections, 2)
	assert.Equal(t, "汽水音乐", e.Sections[0].Items[0].Name)
	assert.Equal(t, "all sources failed", e.Sections[1].Error)
	assert.Contains(t, string(b), `"items": []`, "failed sections keep an empty item list")
}

func TestWrite_NoSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, nil, model.DefaultPreferences()))
	assert.True(t, strings.Contains(buf.String(), `"sections": []`))
}

func TestToJSON_BadPath(t *testing.T) {
	err := export.ToJSON(nil, model.DefaultPreferences(), filepath.Join(t.TempDir(), "missing", "x.json"), nil)
	assert.Error(t, err)
}

func TestToJSON_DashWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	prefs := model.Preferences{RefreshInterval: time.Hour, Language: "en", Country: "jp"}
	require.NoError(t, export.ToJSON(nil, prefs, "-", &buf))

	var e model.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.Equal(t, "jp", e.Country)
	_, err := os.Stat("-")
	assert.True(t, os.IsNotExist(err), "no file named - is created")
}
