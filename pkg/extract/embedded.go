package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"github.com/titanous/json5"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/events"
	"ttscraper/pkg/models"
)

// Script ids that carry page state, in lookup order
var payloadScriptIDs = []string{
	"__UNIVERSAL_DATA_FOR_REHYDRATION__",
	"SIGI_STATE",
	"__NEXT_DATA__",
}

// gjson paths inside the payload where the item list may live, in lookup
// order. The dot inside "webapp.user-detail" is part of the key.
var itemListPaths = []string{
	"ItemModule",
	`__DEFAULT_SCOPE__.webapp\.user-detail.itemList`,
	"props.pageProps.items",
	"itemList",
	"items",
}

const webBaseURL = "https://www.tiktok.com"

// EmbeddedJSON extracts posts from the state payload embedded in the page
type EmbeddedJSON struct {
	emit emitter
}

// NewEmbeddedJSON creates an EmbeddedJSON strategy
func NewEmbeddedJSON(obs events.Observer) *EmbeddedJSON {
	return &EmbeddedJSON{emit: emitter{kind: KindEmbeddedJSON, obs: events.OrNop(obs)}}
}

func (e *EmbeddedJSON) Kind() Kind { return KindEmbeddedJSON }

func (e *EmbeddedJSON) Extract(body string) ([]models.PostRecord, error) {
	out := []models.PostRecord{}

	payload, scriptID, ok := findPayload(body)
	if !ok {
		return out, nil
	}

	payload, err := normalizePayload(payload)
	if err != nil {
		return nil, errs.NewExtraction(fmt.Sprintf("%s payload is not valid JSON", scriptID), err)
	}

	items, found := locateItems(payload)
	if !found {
		return out, nil
	}

	i := 0
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			e.emit.skipped(i, "item is not an object")
		} else {
			out = e.emit.accept(out, projectItem(item), i)
		}
		i++
		return true
	})

	return out, nil
}

func findPayload(body string) (payload, scriptID string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", "", false
	}
	for _, id := range payloadScriptIDs {
		sel := doc.Find(`script[id="` + id + `"]`).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text, id, true
		}
	}
	return "", "", false
}

// normalizePayload returns payload as strict JSON. Payloads that are not
// strict JSON go through a JSON5 decoder and are re-encoded.
func normalizePayload(payload string) (string, error) {
	if gjson.Valid(payload) {
		return payload, nil
	}

	var v interface{}
	if err := json5.Unmarshal([]byte(payload), &v); err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func locateItems(payload string) (gjson.Result, bool) {
	for _, p := range itemListPaths {
		r := gjson.Get(payload, p)
		if r.IsObject() || r.IsArray() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// projectItem maps one item object onto a PostRecord
func projectItem(item gjson.Result) models.PostRecord {
	rec := models.PostRecord{
		ID:           item.Get("id").String(),
		Text:         strings.TrimSpace(item.Get("desc").String()),
		CreateTime:   item.Get("createTime").Int(),
		DiggCount:    item.Get("stats.diggCount").Int(),
		ShareCount:   item.Get("stats.shareCount").Int(),
		PlayCount:    item.Get("stats.playCount").Int(),
		CommentCount: item.Get("stats.commentCount").Int(),
	}

	rec.AuthorMeta = projectAuthor(item)

	video := item.Get("video")
	rec.SecretID = video.Get("id").String()
	rec.VideoURL = video.Get("playAddr").String()
	rec.Covers = models.Covers{
		Default: video.Get("cover").String(),
		Origin:  video.Get("originCover").String(),
	}
	rec.VideoMeta = models.VideoMeta{
		Height:   int(video.Get("height").Int()),
		Width:    int(video.Get("width").Int()),
		Duration: int(video.Get("duration").Int()),
	}

	if music := item.Get("music"); music.IsObject() {
		rec.MusicMeta = &models.MusicMeta{
			MusicID:       music.Get("id").String(),
			MusicName:     music.Get("title").String(),
			MusicAuthor:   music.Get("authorName").String(),
			MusicOriginal: music.Get("original").Bool(),
			CoverThumb:    music.Get("coverThumb").String(),
			CoverMedium:   music.Get("coverMedium").String(),
			CoverLarge:    music.Get("coverLarge").String(),
			Duration:      int(music.Get("duration").Int()),
		}
	}

	for _, c := range item.Get("challenges").Array() {
		rec.Hashtags = append(rec.Hashtags, models.Hashtag{
			ID:    c.Get("id").String(),
			Name:  c.Get("title").String(),
			Title: c.Get("desc").String(),
			Cover: c.Get("coverLarger").String(),
		})
	}

	for _, t := range item.Get("textExtra").Array() {
		if u := t.Get("userUniqueId").String(); u != "" {
			rec.Mentions = append(rec.Mentions, "@"+u)
		}
	}

	for _, s := range item.Get("effectStickers").Array() {
		id := s.Get("ID").String()
		if id == "" {
			id = s.Get("id").String()
		}
		rec.EffectStickers = append(rec.EffectStickers, models.EffectSticker{
			ID:   id,
			Name: s.Get("name").String(),
		})
	}

	if rec.ID != "" && rec.AuthorMeta.Name != "" {
		rec.WebVideoURL = fmt.Sprintf("%s/@%s/video/%s", webBaseURL, rec.AuthorMeta.Name, rec.ID)
	}

	return rec
}

// projectAuthor handles both the nested author object and the flat form
// where author is the handle and the rest sits on the item
func projectAuthor(item gjson.Result) models.AuthorMeta {
	stats := item.Get("authorStats")
	meta := models.AuthorMeta{
		Following: stats.Get("followingCount").Int(),
		Fans:      stats.Get("followerCount").Int(),
		Heart:     stats.Get("heartCount").Int(),
		Video:     stats.Get("videoCount").Int(),
		Digg:      stats.Get("diggCount").Int(),
	}

	author := item.Get("author")
	if author.IsObject() {
		meta.ID = author.Get("id").String()
		meta.SecUID = author.Get("secUid").String()
		meta.Name = author.Get("uniqueId").String()
		meta.NickName = author.Get("nickname").String()
		meta.Verified = author.Get("verified").Bool()
		meta.Signature = author.Get("signature").String()
		meta.Avatar = author.Get("avatarThumb").String()
		return meta
	}

	meta.ID = item.Get("authorId").String()
	meta.SecUID = item.Get("authorSecId").String()
	meta.Name = author.String()
	meta.NickName = item.Get("nickname").String()
	meta.Avatar = item.Get("avatarThumb").String()
	return meta
}
