package feeds_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/feeds"
	"mac-app-monitor/internal/model"
)

const sodaEntry = `{
  "im:name": { "label": "汽水音乐 - 随时听好歌" },
  "im:image": [
    { "label": "https://is1-ssl.mzstatic.com/image/53x53bb.png", "attributes": { "height": "53" } },
    { "label": "https://is1-ssl.mzstatic.com/image/75x75bb.png", "attributes": { "height": "75" } },
    { "label": "https://is1-ssl.mzstatic.com/image/100x100bb.png", "attributes": { "height": "100" } }
  ],
  "summary": { "label": "汽水音乐APP是抖音旗下音乐APP..." },
  "im:price": { "label": "获取", "attributes": { "amount": "0.00", "currency": "CNY" } },
  "title": { "label": "汽水音乐 - 随时听好歌 - Beijing Douyin Technology Co., Ltd." },
  "link": [
    { "attributes": { "rel": "alternate", "type": "text/html", "href": "https://apps.apple.com/cn/app/soda/id1605585211?uo=2" } },
    { "attributes": { "rel": "enclosure", "type": "image/jpeg", "href": "https://is1-ssl.mzstatic.com/preview.jpg" } }
  ],
  "id": {
    "label": "https://apps.apple.com/cn/app/soda/id1605585211?uo=2",
    "attributes": { "im:id": "1605585211", "im:bundleId": "com.soda.music" }
  },
  "im:artist": { "label": "Beijing Douyin Technology Co., Ltd." },
  "category": { "attributes": { "im:id": "6011", "term": "Music", "label": "音乐" } }
}`

func TestNormalize_EntryArray(t *testing.T) {
	payload := `{"feed":{"entry":[` + sodaEntry + `]}}`
	items, err := feeds.Normalize([]byte(payload), "cn")
	require.NoError(t, err)

	want := []model.RankingItem{{
		ID:            "1605585211",
		Rank:          1,
		Name:          "汽水音乐 - 随时听好歌",
		DeveloperName: "Beijing Douyin Technology Co., Ltd.",
		IconURL:       "https://is1-ssl.mzstatic.com/image/100x100bb.png",
		CategoryLabel: "音乐",
		PriceLabel:    "获取",
		StoreURL:      "https://apps.apple.com/cn/app/soda/id1605585211?platform=mac",
		Summary:       "汽水音乐APP是抖音旗下音乐APP...",
	}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_EntrySingleObject(t *testing.T) {
	payload := `{"feed":{"entry":` + sodaEntry + `}}`
	shape, raws, err := feeds.Classify([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, feeds.ShapeEntrySingle, shape)
	assert.Len(t, raws, 1)

	items, err := feeds.Normalize([]byte(payload), "cn")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1605585211", items[0].ID)
	assert.Equal(t, 1, items[0].Rank)
}

func TestNormalize_AbsentEntryIsEmpty(t *testing.T) {
	for _, payload := range []string{
		`{"feed":{"author":{"name":{"label":"iTunes Store"}}}}`,
		`{"feed":{"entry":null}}`,
		`{"feed":{"entry":[]}}`,
		`{"feed":{"results":[]}}`,
	} {
		items, err := feeds.Normalize([]byte(payload), "us")
		require.NoError(t, err, payload)
		assert.NotNil(t, items, payload)
		assert.Empty(t, items, payload)
	}
}

func TestNormalize_Unrecognized(t *testing.T) {
	for _, payload := range []string{`[]`, `"text"`, `{"status":"ok"}`, `not json`, `{"feed":"x"}`} {
		_, err := feeds.Normalize([]byte(payload), "us")
		assert.ErrorIs(t, err, feeds.ErrUnrecognizedPayload, payload)
	}
}

func TestNormalize_DenseRanksAfterFiltering(t *testing.T) {
	payload := `{"feed":{"entry":[
		{"id":{"attributes":{"im:id":"1"}},"im:name":{"label":"A"}},
		{"im:name":{"label":"no id"}},
		{"id":{"attributes":{"im:id":"2"}},"im:name":{"label":"B"}},
		{"id":{"attributes":{"im:id":"1"}},"im:name":{"label":"A again"}},
		"garbage",
		{"id":{"label":"https://apps.apple.com/us/app/c/id3?uo=2"}}
	]}}`
	items, err := feeds.Normalize([]byte(payload), "us")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, i+1, it.Rank)
	}
	assert.Equal(t, []string{"1", "2", "3"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "A", items[0].Name)
	assert.Equal(t, "https://apps.apple.com/us/app/c/id3?platform=mac", items[2].StoreURL)
}

func TestNormalize_IDFromSlugContainingID(t *testing.T) {
	payload := `{"feed":{"entry":[
		{"id":{"label":"https://apps.apple.com/us/app/kid3-audio-tagger/id1234567890?uo=2"},"im:name":{"label":"Kid3"}},
		{"link":{"attributes":{"rel":"alternate","href":"https://apps.apple.com/us/app/id3-editor/id555000111?mt=12"}},"im:name":{"label":"ID3 Editor"}},
		{"id":{"label":"https://apps.apple.com/us/app/id3-editor"},"im:name":{"label":"No id segment"}}
	]}}`
	items, err := feeds.Normalize([]byte(payload), "us")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1234567890", items[0].ID)
	assert.Equal(t, "555000111", items[1].ID)
	assert.Equal(t, "https://apps.apple.com/us/app/id3-editor/id555000111?platform=mac", items[1].StoreURL)
}

func TestNormalize_DefaultsForMissingFields(t *testing.T) {
	payload := `{"feed":{"entry":{"id":{"attributes":{"im:id":"42"}},"im:image":[]}}}`
	items, err := feeds.Normalize([]byte(payload), "US")
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, feeds.UnknownApp, it.Name)
	assert.Equal(t, feeds.UnknownDeveloper, it.DeveloperName)
	assert.Equal(t, feeds.Unknown, it.CategoryLabel)
	assert.Equal(t, feeds.Unknown, it.PriceLabel)
	assert.Equal(t, "", it.IconURL)
	assert.Equal(t, "https://apps.apple.com/us/app/id42?platform=mac", it.StoreURL)
}

func TestNormalize_TitleAndTermFallbacks(t *testing.T) {
	payload := `{"feed":{"entry":[{
		"id":{"attributes":{"im:id":"7"}},
		"title":{"label":"Fallback Title"},
		"category":{"attributes":{"term":"Utilities"}},
		"link":{"attributes":{"rel":"alternate","href":"https://apps.apple.com/us/app/x/id7#frag"}}
	}]}}`
	items, err := feeds.Normalize([]byte(payload), "us")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fallback Title", items[0].Name)
	assert.Equal(t, "Utilities", items[0].CategoryLabel)
	assert.Equal(t, "https://apps.apple.com/us/app/x/id7?platform=mac", items[0].StoreURL)
}

func TestNormalize_ResultsShape(t *testing.T) {
	payload := `{"feed":{"results":[
		{"id":"497799835","name":"Xcode","artistName":"Apple","artworkUrl100":"https://x/100.png",
		 "url":"https://apps.apple.com/us/app/xcode/id497799835?mt=12","genres":[{"genreId":"6026","name":"Developer Tools"}]},
		{"id":"1","name":"Strings","genres":["Utilities"]}
	]}}`
	shape, _, err := feeds.Classify([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, feeds.ShapeResults, shape)

	items, err := feeds.Normalize([]byte(payload), "us")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Xcode", items[0].Name)
	assert.Equal(t, "Apple", items[0].DeveloperName)
	assert.Equal(t, "https://x/100.png", items[0].IconURL)
	assert.Equal(t, "Developer Tools", items[0].CategoryLabel)
	assert.Equal(t, "https://apps.apple.com/us/app/xcode/id497799835?platform=mac", items[0].StoreURL)
	assert.Equal(t, "Utilities", items[1].CategoryLabel)
	assert.Equal(t, feeds.UnknownDeveloper, items[1].DeveloperName)

	top, err := feeds.Normalize([]byte(`{"results":[{"id":"9","name":"Top"}]}`), "us")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "9", top[0].ID)
}

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns:im="http://itunes.apple.com/rss" xmlns="http://www.w3.org/2005/Atom" xml:lang="en">
  <id>https://itunes.apple.com/us/rss/topfreemacapps/limit=50/xml</id>
  <title>iTunes Store: Top Free Mac Apps</title>
  <updated>2025-12-28T19:56:24-07:00</updated>
  <entry>
    <updated>2025-12-28T19:56:24-07:00</updated>
    <id im:id="497799835" im:bundleId="com.apple.dt.Xcode">https://apps.apple.com/us/app/xcode/id497799835?mt=12&amp;uo=2</id>
    <title>Xcode - Apple</title>
    <summary>Xcode includes everything developers need.</summary>
    <im:name>Xcode</im:name>
    <link rel="alternate" type="text/html" href="https://apps.apple.com/us/app/xcode/id497799835?mt=12&amp;uo=2"/>
    <im:contentType term="Application" label="Application"/>
    <category im:id="6026" term="Developer Tools" scheme="https://apps.apple.com/us/genre/id6026" label="Developer Tools"/>
    <im:artist href="https://apps.apple.com/us/developer/apple/id284417353?mt=12">Apple</im:artist>
    <im:price amount="0.00" currency="USD">Get</im:price>
    <im:image height="53">https://is1-ssl.mzstatic.com/53x53bb.png</im:image>
    <im:image height="75">https://is1-ssl.mzstatic.com/75x75bb.png</im:image>
    <im:image height="100">https://is1-ssl.mzstatic.com/100x100bb.png</im:image>
  </entry>
  <entry>
    <id>https://apps.apple.com/us/app/slack/id803453959?mt=12</id>
    <title>Slack - Slack Technologies</title>
  </entry>
</feed>`

func TestNormalizeXML(t *testing.T) {
	items, err := feeds.NormalizeXML(strings.NewReader(atomFeed), "us")
	require.NoError(t, err)
	require.Len(t, items, 2)

	x := items[0]
	assert.Equal(t, "497799835", x.ID)
	assert.Equal(t, 1, x.Rank)
	assert.Equal(t, "Xcode", x.Name)
	assert.Equal(t, "Apple", x.DeveloperName)
	assert.Equal(t, "Developer Tools", x.CategoryLabel)
	assert.Equal(t, "Get", x.PriceLabel)
	assert.Equal(t, "https://is1-ssl.mzstatic.com/100x100bb.png", x.IconURL)
	assert.Equal(t, "https://apps.apple.com/us/app/xcode/id497799835?platform=mac", x.StoreURL)

	s := items[1]
	assert.Equal(t, "803453959", s.ID)
	assert.Equal(t, 2, s.Rank)
	assert.Equal(t, "Slack - Slack Technologies", s.Name)
	assert.Equal(t, feeds.Unknown, s.PriceLabel)
}

func TestNormalizeXML_SlugContainingID(t *testing.T) {
	feed := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>https://apps.apple.com/us/app/kid3-audio-tagger/id1234567890?mt=12</id>
    <title>Kid3 - Urs Fleisch</title>
  </entry>
</feed>`
	items, err := feeds.NormalizeXML(strings.NewReader(feed), "us")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1234567890", items[0].ID)
}

func TestNormalizeXML_Garbage(t *testing.T) {
	_, err := feeds.NormalizeXML(strings.NewReader("<html>blocked</html>"), "us")
	assert.Error(t, err)
}
