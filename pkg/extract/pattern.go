package extract

import (
	"html"
	"regexp"
	"strings"

	"ttscraper/pkg/events"
	"ttscraper/pkg/models"
)

var (
	postItemRe   = regexp.MustCompile(`<div[^>]*data-e2e="user-post-item"[^>]*>([\s\S]*?)</div>`)
	videoIDRe    = regexp.MustCompile(`data-video-id="([^"]+)"`)
	videoTitleRe = regexp.MustCompile(`data-e2e="video-title"[^>]*>([^<]+)<`)
	dataAuthorRe = regexp.MustCompile(`data-author="([^"]+)"`)
	videoHrefRe  = regexp.MustCompile(`href="([^"]*/@([^/"]+)/video/[^"]*)"`)
)

// Pattern extracts posts with regular expressions over the raw body.
// Each post container is matched up to its first closing div. The id, title
// and link are read from the container's inner markup only; the author may
// also sit on the container tag itself.
type Pattern struct {
	emit emitter
}

// NewPattern creates a Pattern strategy
func NewPattern(obs events.Observer) *Pattern {
	return &Pattern{emit: emitter{kind: KindPattern, obs: events.OrNop(obs)}}
}

func (p *Pattern) Kind() Kind { return KindPattern }

func (p *Pattern) Extract(body string) ([]models.PostRecord, error) {
	out := []models.PostRecord{}

	for i, m := range postItemRe.FindAllStringSubmatch(body, -1) {
		inner := m[1]

		var rec models.PostRecord
		if id := videoIDRe.FindStringSubmatch(inner); id != nil {
			rec.ID = strings.TrimSpace(id[1])
		}
		if title := videoTitleRe.FindStringSubmatch(inner); title != nil {
			rec.Text = strings.TrimSpace(html.UnescapeString(title[1]))
		}
		if author := dataAuthorRe.FindStringSubmatch(m[0]); author != nil {
			rec.AuthorMeta.Name = html.UnescapeString(author[1])
		}
		if href := videoHrefRe.FindStringSubmatch(inner); href != nil {
			rec.WebVideoURL = html.UnescapeString(href[1])
			if rec.AuthorMeta.Name == "" {
				rec.AuthorMeta.Name = href[2]
			}
		}

		out = p.emit.accept(out, rec, i)
	}

	return out, nil
}
