// Package playlist extracts ordered media segment references from HLS
// playlists.
package playlist

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyPlaylist is returned when a playlist lists no .ts segments. It
// means manifest resolution picked the wrong document and is never retried.
var ErrEmptyPlaylist = errors.New("playlist: no .ts segments found")

// ErrNotPlaylistURL is returned when a URL does not point to an m3u8 playlist.
var ErrNotPlaylistURL = errors.New("playlist: not an m3u8 url")

// SegmentExt is the extension a playlist entry must carry to be a segment.
const SegmentExt = ".ts"

// Segment is one media segment reference.
type Segment struct {
	// Name is the entry without its query string. It keys the ledger.
	Name string
	// Entry is the full playlist line, used as the fetch key.
	Entry string
	// Query is the query suffix of Entry without the leading '?'.
	Query string
}

// FileName is the flat file name the segment is stored under. Directory
// separators of Name become underscores, and absolute entries lose their
// scheme.
func (s Segment) FileName() string {
	name := s.Name
	if u, err := url.Parse(name); err == nil && u.IsAbs() {
		name = u.Host + u.Path
	}
	return strings.ReplaceAll(strings.Trim(name, "/"), "/", "_")
}

// Playlist is an ordered segment list plus the root URL entries are
// relative to.
type Playlist struct {
	URL      string
	RootURL  string
	Segments []Segment
}

// Parse returns the segments listed in text in playlist order.
// Lines are trimmed; a line is kept when its path, ignoring any query,
// ends with .ts.
func Parse(text string) ([]Segment, error) {
	var segments []Segment

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entryPath, query, _ := strings.Cut(line, "?")
		if !strings.HasSuffix(entryPath, SegmentExt) {
			continue
		}

		segments = append(segments, Segment{
			Name:  entryPath,
			Entry: line,
			Query: query,
		})
	}

	if len(segments) == 0 {
		return nil, ErrEmptyPlaylist
	}
	return segments, nil
}

// CheckURL verifies that rawURL points to an m3u8 playlist.
func CheckURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotPlaylistURL, rawURL, err)
	}
	if !strings.HasSuffix(u.Path, "m3u8") {
		return fmt.Errorf("%w: %s", ErrNotPlaylistURL, rawURL)
	}
	return nil
}

// New parses text fetched from playlistURL.
func New(playlistURL, text string) (*Playlist, error) {
	if err := CheckURL(playlistURL); err != nil {
		return nil, err
	}

	segments, err := Parse(text)
	if err != nil {
		return nil, err
	}

	return &Playlist{
		URL:      playlistURL,
		RootURL:  RootURL(playlistURL),
		Segments: segments,
	}, nil
}

// RootURL strips the playlist filename (and its query) from playlistURL.
func RootURL(playlistURL string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(playlistURL), "?")
	if i := strings.LastIndex(base, "/"); i >= 0 {
		return base[:i]
	}
	return base
}

// SegmentURL returns the URL a segment is fetched from.
func (p *Playlist) SegmentURL(s Segment) string {
	if strings.HasPrefix(s.Entry, "http://") || strings.HasPrefix(s.Entry, "https://") {
		return s.Entry
	}
	return strings.TrimRight(p.RootURL, "/") + "/" + strings.TrimLeft(s.Entry, "/")
}

// Index returns the position of the segment matching marker, by full entry
// or by name, or -1.
func (p *Playlist) Index(marker string) int {
	for i, s := range p.Segments {
		if s.Entry == marker || s.Name == marker {
			return i
		}
	}
	return -1
}
