package apple

import (
	"strconv"
	"strings"
)

// Genres 为常用 Mac 分类（slug → genreId）。
var Genres = map[string]int{
	"business":          6000,
	"weather":           6001,
	"utilities":         6002,
	"travel":            6003,
	"sports":            6004,
	"social-networking": 6005,
	"reference":         6006,
	"productivity":      6007,
	"photo-video":       6008,
	"news":              6009,
	"navigation":        6010,
	"music":             6011,
	"lifestyle":         6012,
	"health-fitness":    6013,
	"games":             GamesGenreID,
	"finance":           6015,
	"entertainment":     6016,
	"education":         6017,
	"medical":           6020,
	"shopping":          6024,
	"developer-tools":   6026,
	"graphics-design":   6027,
}

// ResolveGenre 接受数字或 slug，空字符串/"all" 表示不过滤（0）。
func ResolveGenre(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return 0, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, true
	}
	id, ok := Genres[s]
	return id, ok
}
