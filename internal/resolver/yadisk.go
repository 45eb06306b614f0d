package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var storePrefetch = regexp.MustCompile(`id="store-prefetch">([^<]+)</script`)

// YaDisk resolves public Yandex Disk videos from the page's prefetched
// store.
type YaDisk struct{}

// NewYaDisk creates a Yandex Disk resolver.
func NewYaDisk() *YaDisk {
	return &YaDisk{}
}

func (r *YaDisk) Name() string  { return "yadisk" }
func (r *YaDisk) Title() string { return "Яндекс.Диск" }

func (r *YaDisk) Params() []Param {
	return []Param{
		{Name: "url_video", Hint: "Video URL (https://disk.yandex.ru/i/xxx)", Required: true},
	}
}

func (r *YaDisk) Headers() http.Header { return nil }

type yaResource struct {
	Name         string `json:"name"`
	VideoStreams struct {
		Videos []struct {
			Dimension string `json:"dimension"`
			URL       string `json:"url"`
		} `json:"videos"`
	} `json:"videoStreams"`
}

func (r *YaDisk) Resolve(ctx context.Context, f Fetcher, params map[string]string) (Resolution, error) {
	if err := CheckParams(r, params); err != nil {
		return Resolution{}, err
	}

	videoURL := strings.TrimSpace(params["url_video"])
	page, err := f.GetText(ctx, videoURL, nil)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %s: get page: %w", ErrResolution, r.Name(), err)
	}

	m := storePrefetch.FindStringSubmatch(page)
	if m == nil {
		return Resolution{}, resolutionError(r, "manifest not found for %s", videoURL)
	}

	resource, err := firstResource([]byte(m[1]))
	if err != nil {
		return Resolution{}, resolutionError(r, "%v", err)
	}

	playlistURL := bestStream(resource)
	if playlistURL == "" {
		return Resolution{}, resolutionError(r, "no video stream with a numeric dimension")
	}

	return Resolution{
		PlaylistURL: playlistURL,
		Title:       resource.Name,
		Referer:     videoURL,
	}, nil
}

// firstResource decodes the first entry of the manifest's resources object,
// in document order.
func firstResource(manifest []byte) (yaResource, error) {
	var doc struct {
		Resources json.RawMessage `json:"resources"`
	}
	if err := json.Unmarshal(manifest, &doc); err != nil {
		return yaResource{}, fmt.Errorf("decode manifest: %w", err)
	}
	if len(doc.Resources) == 0 {
		return yaResource{}, fmt.Errorf("manifest has no resources")
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Resources))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return yaResource{}, fmt.Errorf("manifest resources is not an object")
	}
	if !dec.More() {
		return yaResource{}, fmt.Errorf("manifest has no resources")
	}
	if _, err := dec.Token(); err != nil {
		return yaResource{}, fmt.Errorf("decode resources: %w", err)
	}

	var res yaResource
	if err := dec.Decode(&res); err != nil {
		return yaResource{}, fmt.Errorf("decode resource: %w", err)
	}
	return res, nil
}

// bestStream returns the URL of the stream with the largest numeric
// dimension ("720p"). Streams like "adaptive" are ignored.
func bestStream(res yaResource) string {
	best, bestURL := 0, ""
	for _, v := range res.VideoStreams.Videos {
		dim, _, _ := strings.Cut(v.Dimension, "p")
		if dim == "" || strings.TrimLeft(dim, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(dim)
		if err != nil {
			continue
		}
		if n > best {
			best, bestURL = n, v.URL
		}
	}
	return bestURL
}
