package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
	"ttscraper/pkg/events"
	"ttscraper/pkg/models"
)

const (
	DefaultContainerSelector = `[data-e2e="user-post-item"]`
	DefaultLinkSelector      = `a[href*="/video/"]`
)

// Markup extracts posts by querying the parsed DOM
type Markup struct {
	container string
	link      string
	emit      emitter
}

// MarkupOption configures a Markup strategy
type MarkupOption func(*Markup)

// WithSelectors overrides the container and link selectors
func WithSelectors(container, link string) MarkupOption {
	return func(m *Markup) {
		m.container = container
		m.link = link
	}
}

// NewMarkup creates a Markup strategy
func NewMarkup(obs events.Observer, opts ...MarkupOption) *Markup {
	m := &Markup{
		container: DefaultContainerSelector,
		link:      DefaultLinkSelector,
		emit:      emitter{kind: KindMarkup, obs: events.OrNop(obs)},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Markup) Kind() Kind { return KindMarkup }

func (m *Markup) Extract(body string) ([]models.PostRecord, error) {
	out := []models.PostRecord{}
	if strings.TrimSpace(m.container) == "" {
		return out, nil
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return out, nil
	}
	doc := goquery.NewDocumentFromNode(root)

	nickName := profileNickName(body)

	doc.Find(m.container).Each(func(i int, item *goquery.Selection) {
		rec := m.record(item)
		if rec.AuthorMeta.NickName == "" {
			rec.AuthorMeta.NickName = nickName
		}
		out = m.emit.accept(out, rec, i)
	})

	return out, nil
}

func (m *Markup) record(item *goquery.Selection) models.PostRecord {
	var rec models.PostRecord

	link := item.Find(m.link).First()
	href, _ := link.Attr("href")
	if href == "" && goquery.NodeName(item) == "a" {
		href, _ = item.Attr("href")
		link = item
	}

	if href != "" {
		rec.ID = idFromHref(href)
		rec.AuthorMeta.Name = handleFromHref(href)
		rec.WebVideoURL = href
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSpace(item.Find("[data-video-id]").First().AttrOr("data-video-id", ""))
	}

	img := item.Find("img").First()
	rec.Covers.Default = img.AttrOr("src", "")

	switch {
	case item.Find(`[data-e2e="video-title"]`).Length() > 0:
		rec.Text = collapse(item.Find(`[data-e2e="video-title"]`).First().Text())
	case strings.TrimSpace(img.AttrOr("alt", "")) != "":
		rec.Text = collapse(img.AttrOr("alt", ""))
	case link.Length() > 0:
		rec.Text = nodeText(link.Nodes[0])
	}

	return rec
}

// idFromHref returns the last path segment of href with query and fragment
// removed. A path that stops at /video/ or at the /@name/ handle has no id.
func idFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	id := path.Base(p)
	if id == "video" || strings.HasPrefix(id, "@") {
		return ""
	}
	return id
}

// handleFromHref returns the "name" of a /@name/ path segment
func handleFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if strings.HasPrefix(seg, "@") && len(seg) > 1 {
			return seg[1:]
		}
	}
	return ""
}

// nodeText joins the text nodes under n with single spaces, skipping scripts and styles
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// profileNickName reads the display name from OpenGraph tags on profile pages
func profileNickName(body string) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(body)); err != nil {
		return ""
	}
	if og.Type != "profile" && !strings.Contains(og.URL, "/@") {
		return ""
	}
	title := strings.TrimSpace(og.Title)
	if i := strings.Index(title, " | "); i >= 0 {
		title = title[:i]
	}
	if i := strings.Index(title, " (@"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}
