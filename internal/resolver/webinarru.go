package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const webinarRuBase = "https://events.webinar.ru"

// WebinarRu resolves webinar.ru records. The playlist URL has to be taken
// from the browser; the record API only supplies the title.
type WebinarRu struct {
	apiBase string
}

// NewWebinarRu creates a webinar.ru resolver.
func NewWebinarRu() *WebinarRu {
	return &WebinarRu{apiBase: webinarRuBase}
}

func (r *WebinarRu) Name() string  { return "webinarru" }
func (r *WebinarRu) Title() string { return "webinar.ru" }

func (r *WebinarRu) Params() []Param {
	return []Param{
		{Name: "url_video", Hint: "Video URL (with `record-new/`)", Required: true},
		{Name: "url_playlist", Hint: "Video chunk list URL (with `chunklist.m3u8`)", Required: true},
	}
}

func (r *WebinarRu) Headers() http.Header {
	return http.Header{"Origin": {webinarRuBase}}
}

func (r *WebinarRu) Resolve(ctx context.Context, f Fetcher, params map[string]string) (Resolution, error) {
	if err := CheckParams(r, params); err != nil {
		return Resolution{}, err
	}

	videoURL := strings.TrimSpace(params["url_video"])
	_, tail, ok := strings.Cut(videoURL, "record-new/")
	if !ok {
		return Resolution{}, resolutionError(r,
			"unexpected video URL format: given %s, expected https://events.webinar.ru/xxx/yyy/record-new/aaa/bbb", videoURL)
	}
	session, video, _ := strings.Cut(tail, "/")

	manifestURL := fmt.Sprintf("%s/api/eventsessions/%s/record/isviewable?recordAccessToken=%s",
		r.apiBase, url.PathEscape(session), url.QueryEscape(video))

	var manifest struct {
		Name string `json:"name"`
	}
	if err := f.GetJSON(ctx, manifestURL, nil, &manifest); err != nil {
		return Resolution{}, fmt.Errorf("%w: %s: get manifest: %w", ErrResolution, r.Name(), err)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return Resolution{}, resolutionError(r, "manifest has no name")
	}

	return Resolution{
		PlaylistURL: strings.TrimSpace(params["url_playlist"]),
		Title:       manifest.Name,
		Referer:     videoURL,
	}, nil
}
