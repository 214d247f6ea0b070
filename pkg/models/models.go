package models

import (
	"strings"
)

// ScrapeType is the category of feed being requested
type ScrapeType string

const (
	ScrapeTypeUser    ScrapeType = "user"
	ScrapeTypeHashtag ScrapeType = "hashtag"
	ScrapeTypeTrend   ScrapeType = "trend"
)

// DefaultCount is the number of posts requested when a request leaves Count unset
const DefaultCount = 10

// ParseScrapeType normalizes a type name. "trending" is accepted as an alias
// for trend. Unknown names are returned as-is so the dispatcher can reject them.
func ParseScrapeType(s string) ScrapeType {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "trending" {
		return ScrapeTypeTrend
	}
	return ScrapeType(t)
}

// Valid reports whether t is one of the supported scrape types
func (t ScrapeType) Valid() bool {
	switch t {
	case ScrapeTypeUser, ScrapeTypeHashtag, ScrapeTypeTrend:
		return true
	}
	return false
}

// ScrapeRequest describes one scrape call. It is passed by value.
type ScrapeRequest struct {
	Type     ScrapeType `json:"type"`
	Input    string     `json:"input"`
	Count    int        `json:"count"`
	Download bool       `json:"download,omitempty"`
}

// Merge returns r with every zero-valued field filled from defaults.
// Non-zero fields of r win.
func (r ScrapeRequest) Merge(defaults ScrapeRequest) ScrapeRequest {
	out := defaults
	if r.Type != "" {
		out.Type = r.Type
	}
	if r.Input != "" {
		out.Input = r.Input
	}
	if r.Count > 0 {
		out.Count = r.Count
	}
	if r.Download {
		out.Download = true
	}
	if out.Count <= 0 {
		out.Count = DefaultCount
	}
	return out
}

// PostRecord is a single extracted post
type PostRecord struct {
	ID             string          `json:"id"`
	SecretID       string          `json:"secretID,omitempty"`
	Text           string          `json:"text"`
	CreateTime     int64           `json:"createTime"`
	AuthorMeta     AuthorMeta      `json:"authorMeta"`
	MusicMeta      *MusicMeta      `json:"musicMeta,omitempty"`
	Covers         Covers          `json:"covers"`
	WebVideoURL    string          `json:"webVideoUrl"`
	VideoURL       string          `json:"videoUrl"`
	VideoMeta      VideoMeta       `json:"videoMeta"`
	DiggCount      int64           `json:"diggCount"`
	ShareCount     int64           `json:"shareCount"`
	PlayCount      int64           `json:"playCount"`
	CommentCount   int64           `json:"commentCount"`
	Downloaded     bool            `json:"downloaded"`
	Mentions       []string        `json:"mentions"`
	Hashtags       []Hashtag       `json:"hashtags"`
	EffectStickers []EffectSticker `json:"effectStickers"`
}

// Valid reports whether the record carries both required fields
func (p *PostRecord) Valid() bool {
	return p.ID != "" && p.Text != ""
}

// Normalize replaces nil slices with empty ones so they encode as []
func (p *PostRecord) Normalize() {
	if p.Mentions == nil {
		p.Mentions = []string{}
	}
	if p.Hashtags == nil {
		p.Hashtags = []Hashtag{}
	}
	if p.EffectStickers == nil {
		p.EffectStickers = []EffectSticker{}
	}
}

// AuthorMeta holds the author of a post
type AuthorMeta struct {
	ID        string `json:"id"`
	SecUID    string `json:"secUid"`
	Name      string `json:"name"`
	NickName  string `json:"nickName"`
	Verified  bool   `json:"verified"`
	Signature string `json:"signature"`
	Avatar    string `json:"avatar"`
	Following int64  `json:"following"`
	Fans      int64  `json:"fans"`
	Heart     int64  `json:"heart"`
	Video     int64  `json:"video"`
	Digg      int64  `json:"digg"`
}

// MusicMeta holds the sound attached to a post
type MusicMeta struct {
	MusicID       string `json:"musicId"`
	MusicName     string `json:"musicName"`
	MusicAuthor   string `json:"musicAuthor"`
	MusicOriginal bool   `json:"musicOriginal"`
	CoverThumb    string `json:"coverThumb"`
	CoverMedium   string `json:"coverMedium"`
	CoverLarge    string `json:"coverLarge"`
	Duration      int    `json:"duration"`
}

// Covers holds the cover image URLs
type Covers struct {
	Default string `json:"default"`
	Origin  string `json:"origin"`
}

// VideoMeta holds video dimensions and length
type VideoMeta struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Duration int `json:"duration"`
}

// Hashtag is a challenge referenced by a post
type Hashtag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

// EffectSticker is an effect used in a post
type EffectSticker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScrapeResult is the output of one scrape call
type ScrapeResult struct {
	Collector []PostRecord `json:"collector"`
}

// NewScrapeResult wraps records, never leaving Collector nil
func NewScrapeResult(records []PostRecord) *ScrapeResult {
	if records == nil {
		records = []PostRecord{}
	}
	return &ScrapeResult{Collector: records}
}
