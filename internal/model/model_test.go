package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/model"
)

func TestParseSectionType(t *testing.T) {
	st, err := model.ParseSectionType(" Top-Paid-Games ")
	require.NoError(t, err)
	assert.Equal(t, model.TopPaidGames, st)
	_, err = model.ParseSectionType("top-everything")
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Top Free Apps", model.Title(model.TopFree, "en"))
	assert.Equal(t, "付费游戏榜", model.Title(model.TopPaidGames, "zh"))
	assert.Equal(t, "Top Grossing Apps", model.Title(model.TopGrossing, "fr"))
	assert.Equal(t, "custom", model.Title("custom", "en"))
}

func TestPreferences_Validate(t *testing.T) {
	assert.NoError(t, model.DefaultPreferences().Validate())
	for _, p := range []model.Preferences{
		{RefreshInterval: 2 * time.Hour, Language: "en", Country: "us"},
		{RefreshInterval: time.Hour, Language: "de", Country: "us"},
		{RefreshInterval: time.Hour, Language: "en", Country: "usa"},
	} {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestPreferences_JSONUsesMilliseconds(t *testing.T) {
	b, err := json.Marshal(model.Preferences{RefreshInterval: time.Hour, Language: "zh", Country: "cn"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"refreshIntervalMs":3600000,"language":"zh","country":"cn"}`, string(b))

	var p model.Preferences
	require.NoError(t, json.Unmarshal([]byte(`{"refreshIntervalMs":43200000,"language":"en","country":"jp"}`), &p))
	assert.Equal(t, 12*time.Hour, p.RefreshInterval)
}

func TestPriceLabel(t *testing.T) {
	assert.Equal(t, "Free", model.AppDetail{Price: 0, FormattedPrice: "¥0"}.PriceLabel())
	assert.Equal(t, "$4.99", model.AppDetail{Price: 4.99, FormattedPrice: "$4.99"}.PriceLabel())
	assert.Equal(t, "9.99", model.AppDetail{Price: 9.99}.PriceLabel())
}

func TestSectionJSON(t *testing.T) {
	b, err := json.Marshal(model.Section{Type: model.TopFree, Title: "Top Free Apps", Items: []model.RankingItem{}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sectionType":"top-free"`)
	assert.Contains(t, string(b), `"items":[]`)
	assert.NotContains(t, string(b), `"error"`)
}
