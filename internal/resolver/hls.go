package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/idlesign/webinardump/internal/playlist"
)

// HLS takes a playlist URL directly. A master playlist is narrowed to its
// best variant.
type HLS struct{}

// NewHLS creates a direct playlist resolver.
func NewHLS() *HLS {
	return &HLS{}
}

func (r *HLS) Name() string  { return "hls" }
func (r *HLS) Title() string { return "HLS playlist" }

func (r *HLS) Params() []Param {
	return []Param{
		{Name: "url_playlist", Hint: "Playlist URL (ends with .m3u8)", Required: true},
		{Name: "title", Hint: "Video title"},
		{Name: "referer", Hint: "Referer to send"},
	}
}

func (r *HLS) Headers() http.Header { return nil }

func (r *HLS) Resolve(ctx context.Context, f Fetcher, params map[string]string) (Resolution, error) {
	if err := CheckParams(r, params); err != nil {
		return Resolution{}, err
	}

	playlistURL := strings.TrimSpace(params["url_playlist"])
	referer := strings.TrimSpace(params["referer"])

	var header http.Header
	if referer != "" {
		header = http.Header{"Referer": {referer}}
	}

	text, err := f.GetText(ctx, playlistURL, header)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %s: get playlist: %w", ErrResolution, r.Name(), err)
	}

	variant, isMaster, err := playlist.BestVariant(text)
	if err != nil && isMaster {
		return Resolution{}, fmt.Errorf("%w: %s: %w", ErrResolution, r.Name(), err)
	}
	if isMaster {
		playlistURL, err = resolveReference(playlistURL, variant)
		if err != nil {
			return Resolution{}, resolutionError(r, "variant url: %v", err)
		}
	}

	title := strings.TrimSpace(params["title"])
	if title == "" {
		title = titleFromURL(playlistURL)
	}

	return Resolution{
		PlaylistURL: playlistURL,
		Title:       title,
		Referer:     referer,
	}, nil
}

func resolveReference(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// titleFromURL names a dump after the directory holding the playlist.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "video"
	}
	if dir := path.Base(path.Dir(u.Path)); dir != "/" && dir != "." && dir != "" {
		return dir
	}
	if u.Hostname() != "" {
		return u.Hostname()
	}
	return "video"
}
