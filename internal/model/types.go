// 包 model 定义排行榜/应用详情/偏好设置等共享数据模型。
package model

import (
	"fmt"
	"strings"
	"time"
)

// SectionType 为榜单类型（对应一个排行榜视图）。
type SectionType string

const (
	TopFree      SectionType = "top-free"
	TopPaid      SectionType = "top-paid"
	TopGrossing  SectionType = "top-grossing"
	TopFreeGames SectionType = "top-free-games"
	TopPaidGames SectionType = "top-paid-games"
	// 以下为低优先级别名，取数时折叠到基础榜单
	NewApps SectionType = "new-apps"
	NewFree SectionType = "new-free"
	NewPaid SectionType = "new-paid"
)

// AllSectionTypes 按声明顺序列出全部榜单类型。
var AllSectionTypes = []SectionType{
	TopFree, TopPaid, TopGrossing, TopFreeGames, TopPaidGames, NewApps, NewFree, NewPaid,
}

// ParseSectionType 解析榜单名称（不区分大小写），未知名称返回错误。
func ParseSectionType(s string) (SectionType, error) {
	v := SectionType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllSectionTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown section type %q", s)
}

// 数据来源标记
const (
	SourceRSS = "rss"
	SourceWeb = "web"
)

// RankingItem 为榜单中的一个应用位置。
type RankingItem struct {
	ID            string `json:"id"`
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	DeveloperName string `json:"developerName"`
	IconURL       string `json:"iconUrl"`
	CategoryLabel string `json:"categoryLabel"`
	PriceLabel    string `json:"priceLabel"`
	StoreURL      string `json:"storeUrl"`
	Summary       string `json:"summary"`
}

// Section 为一个榜单视图；Error 非空时 Items 可以为空，但仍需展示。
type Section struct {
	Type      SectionType   `json:"sectionType"`
	Title     string        `json:"title"`
	Items     []RankingItem `json:"items"`
	Error     string        `json:"error,omitempty"`
	Source    string        `json:"source,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Empty 判断榜单是否没有任何条目。
func (s Section) Empty() bool { return len(s.Items) == 0 }

// AppDetail 为 iTunes Lookup 返回的单个应用详情。
type AppDetail struct {
	TrackID                   int64    `json:"trackId"`
	TrackName                 string   `json:"trackName"`
	SellerName                string   `json:"sellerName"`
	TrackViewURL              string   `json:"trackViewUrl"`
	Genres                    []string `json:"genres"`
	PrimaryGenreName          string   `json:"primaryGenreName"`
	FormattedPrice            string   `json:"formattedPrice"`
	Price                     float64  `json:"price"`
	AverageUserRating         float64  `json:"averageUserRating"`
	UserRatingCount           int      `json:"userRatingCount"`
	Description               string   `json:"description"`
	Features                  []string `json:"features"`
	ScreenshotURLs            []string `json:"screenshotUrls"`
	SupportedDevices          []string `json:"supportedDevices"`
	Version                   string   `json:"version"`
	CurrentVersionReleaseDate string   `json:"currentVersionReleaseDate"`
	ArtworkURL512             string   `json:"artworkUrl512"`
	BundleID                  string   `json:"bundleId,omitempty"`
	MinimumOSVersion          string   `json:"minimumOsVersion,omitempty"`
	ContentAdvisoryRating     string   `json:"contentAdvisoryRating,omitempty"`
	FileSizeBytes             string   `json:"fileSizeBytes,omitempty"`
	ReleaseDate               string   `json:"releaseDate,omitempty"`
	ArtistID                  int64    `json:"artistId,omitempty"`
	ArtistViewURL             string   `json:"artistViewUrl,omitempty"`
}

// PriceLabel 返回展示用价格：0 价格统一为 "Free"。
func (d AppDetail) PriceLabel() string {
	if d.Price == 0 {
		return "Free"
	}
	if d.FormattedPrice != "" {
		return d.FormattedPrice
	}
	return fmt.Sprintf("%.2f", d.Price)
}

// Export 为 dashboard 导出的 JSON 顶层结构。
type Export struct {
	Country   string    `json:"country"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
	Sections  []Section `json:"sections"`
}
