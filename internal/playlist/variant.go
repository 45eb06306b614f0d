package playlist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

// BestVariant inspects a playlist document. For a master playlist it returns
// the URI of the variant with the largest resolution, bandwidth breaking
// ties, and true. For a media playlist it returns "", false.
func BestVariant(text string) (string, bool, error) {
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return "", false, fmt.Errorf("playlist: decode: %w", err)
	}
	if listType != m3u8.MASTER {
		return "", false, nil
	}

	master := pl.(*m3u8.MasterPlaylist)

	var best *m3u8.Variant
	bestPixels := -1
	for _, v := range master.Variants {
		if v == nil || v.URI == "" || v.Iframe {
			continue
		}
		pixels := resolutionPixels(v.Resolution)
		if best == nil || pixels > bestPixels || (pixels == bestPixels && v.Bandwidth > best.Bandwidth) {
			best = v
			bestPixels = pixels
		}
	}

	if best == nil {
		return "", true, fmt.Errorf("playlist: master playlist has no variants")
	}
	return best.URI, true, nil
}

// resolutionPixels converts "1280x720" into a pixel count; unknown is 0.
func resolutionPixels(resolution string) int {
	w, h, ok := strings.Cut(strings.ToLower(resolution), "x")
	if !ok {
		return 0
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0
	}
	return width * height
}
