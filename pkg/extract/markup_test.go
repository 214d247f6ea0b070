package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/events"
)

const hashtagPage = `<!DOCTYPE html>
<html><head><title>#cats | TikTok</title></head>
<body>
<div data-e2e="challenge-item-list">
  <div data-e2e="user-post-item">
    <a href="https://www.tiktok.com/@kitty/video/7001?is_from_webapp=1">
      <img src="https://cdn.test/7001.jpg" alt="cat on a keyboard">
      <div data-e2e="video-title">  Cat   on a keyboard  </div>
    </a>
  </div>
  <div data-e2e="user-post-item">
    <a href="/@tabby/video/7002/"><img src="https://cdn.test/7002.jpg" alt="sleepy tabby"></a>
  </div>
  <div data-e2e="user-post-item">
    <a href="/@ghost/profile"><span>no video link</span></a>
  </div>
  <div data-e2e="user-post-item">
    <a href="/@plain/video/7003#comments"><span>just</span> <b>link text</b></a>
  </div>
</div>
</body></html>`

func TestMarkupExtract(t *testing.T) {
	rec := &events.Recorder{}
	records, err := NewMarkup(rec).Extract(hashtagPage)
	require.NoError(t, err)

	require.Len(t, records, 3)

	assert.Equal(t, "7001", records[0].ID)
	assert.Equal(t, "Cat on a keyboard", records[0].Text)
	assert.Equal(t, "kitty", records[0].AuthorMeta.Name)
	assert.Equal(t, "https://cdn.test/7001.jpg", records[0].Covers.Default)

	assert.Equal(t, "7002", records[1].ID)
	assert.Equal(t, "sleepy tabby", records[1].Text)

	assert.Equal(t, "7003", records[2].ID)
	assert.Equal(t, "just link text", records[2].Text)
	assert.Equal(t, "plain", records[2].AuthorMeta.Name)

	assert.Equal(t, 1, rec.Count(events.ItemSkipped))
}

func TestMarkupIdempotent(t *testing.T) {
	m := NewMarkup(nil)
	first, err := m.Extract(hashtagPage)
	require.NoError(t, err)
	second, err := m.Extract(hashtagPage)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestMarkupEmptySelector(t *testing.T) {
	records, err := NewMarkup(nil, WithSelectors("", "")).Extract(hashtagPage)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMarkupGarbageBody(t *testing.T) {
	records, err := NewMarkup(nil).Extract("<<<%%% not html at all")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMarkupProfileNickName(t *testing.T) {
	page := `<html><head>
<meta property="og:type" content="profile">
<meta property="og:title" content="Alice Doe (@alice) | TikTok">
<meta property="og:url" content="https://www.tiktok.com/@alice">
</head><body>
<article class="tile"><a href="/@alice/video/9"><div data-e2e="video-title">hi</div></a></article>
</body></html>`

	records, err := NewMarkup(nil, WithSelectors("article.tile", DefaultLinkSelector)).Extract(page)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice Doe", records[0].AuthorMeta.NickName)
	assert.Equal(t, "alice", records[0].AuthorMeta.Name)
}

func TestMarkupBareVideoHref(t *testing.T) {
	page := `<html><body>
<div data-e2e="user-post-item"><a href="/@x/video/"><span data-e2e="video-title">no id</span></a></div>
<div data-e2e="user-post-item"><a href="/@x/video/" data-video-id="55"><span data-e2e="video-title">attr id</span></a></div>
</body></html>`

	records, err := NewMarkup(nil).Extract(page)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "55", records[0].ID)
	assert.Equal(t, "attr id", records[0].Text)
}

func TestIDFromHref(t *testing.T) {
	assert.Equal(t, "123", idFromHref("https://www.tiktok.com/@a/video/123?lang=en"))
	assert.Equal(t, "123", idFromHref("/@a/video/123/"))
	assert.Equal(t, "", idFromHref(""))
	assert.Equal(t, "", idFromHref("/@x/video/"))
	assert.Equal(t, "", idFromHref("https://www.tiktok.com/@x/video?lang=en"))
	assert.Equal(t, "", idFromHref("/@x/"))
	assert.Equal(t, "a", handleFromHref("/@a/video/123"))
	assert.Equal(t, "", handleFromHref("/video/123"))
}
