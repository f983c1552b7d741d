package model

var chartLabels = map[string]map[SectionType]string{
	"en": {
		TopFree:      "Top Free Apps",
		TopPaid:      "Top Paid Apps",
		TopGrossing:  "Top Grossing Apps",
		NewApps:      "New Apps",
		NewFree:      "New Free Apps",
		NewPaid:      "New Paid Apps",
		TopFreeGames: "Top Free Games",
		TopPaidGames: "Top Paid Games",
	},
	"zh": {
		TopFree:      "免费应用榜",
		TopPaid:      "付费应用榜",
		TopGrossing:  "畅销应用榜",
		NewApps:      "新上架",
		NewFree:      "新免费",
		NewPaid:      "新付费",
		TopFreeGames: "免费游戏榜",
		TopPaidGames: "付费游戏榜",
	},
}

// Title 返回榜单的展示标题，未知语言回退到英文。
func Title(t SectionType, language string) string {
	labels, ok := chartLabels[language]
	if !ok {
		labels = chartLabels["en"]
	}
	if s, ok := labels[t]; ok {
		return s
	}
	return string(t)
}
