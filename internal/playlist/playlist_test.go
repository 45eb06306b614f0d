package playlist

import (
	"errors"
	"testing"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXTINF:10.0,
10.ts?some=other10
#EXTINF:10.0,
2.ts?some=other2
#EXTINF:10.0,
  1.ts  
#EXTINF:10.0,
media/3.ts
readme.txt
4.ts.bak
#EXT-X-ENDLIST
`

func TestParsePreservesOrder(t *testing.T) {
	segments, err := Parse(mediaPlaylist)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Segment{
		{Name: "10.ts", Entry: "10.ts?some=other10", Query: "some=other10"},
		{Name: "2.ts", Entry: "2.ts?some=other2", Query: "some=other2"},
		{Name: "1.ts", Entry: "1.ts"},
		{Name: "media/3.ts", Entry: "media/3.ts"},
	}

	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segments), segments)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segments[i], want[i])
		}
	}
}

func TestParseEmpty(t *testing.T) {
	tests := []string{
		"",
		"#EXTM3U\n#EXT-X-ENDLIST\n",
		"<html>not a playlist</html>",
		"video.mp4\naudio.aac?x=1",
	}

	for _, text := range tests {
		_, err := Parse(text)
		if !errors.Is(err, ErrEmptyPlaylist) {
			t.Errorf("Parse(%q): expected ErrEmptyPlaylist, got %v", text, err)
		}
	}
}

func TestParseWindowsLineEndings(t *testing.T) {
	segments, err := Parse("a.ts?x=1\r\nb.ts?x=2\r\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segments) != 2 || segments[0].Name != "a.ts" || segments[1].Name != "b.ts" {
		t.Errorf("unexpected segments: %+v", segments)
	}
}

func TestParseKeepsDirectories(t *testing.T) {
	segments, err := Parse("hi/1.ts?t=1\nlo/1.ts?t=2\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segments)
	}
	if segments[0].Name != "hi/1.ts" || segments[1].Name != "lo/1.ts" {
		t.Errorf("unexpected names: %q, %q", segments[0].Name, segments[1].Name)
	}
	if segments[0].FileName() == segments[1].FileName() {
		t.Errorf("file names collide: %s", segments[0].FileName())
	}
}

func TestSegmentFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"1.ts", "1.ts"},
		{"hi/1.ts", "hi_1.ts"},
		{"/abs/path/2.ts", "abs_path_2.ts"},
		{"https://cdn.example/v/3.ts", "cdn.example_v_3.ts"},
	}

	for _, tt := range tests {
		if got := (Segment{Name: tt.name}).FileName(); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://here/there.m3u8", true},
		{"https://here/chunklist.m3u8?token=abc", true},
		{"https://here/there.mpd", false},
		{"https://here/", false},
	}

	for _, tt := range tests {
		err := CheckURL(tt.url)
		if tt.ok && err != nil {
			t.Errorf("CheckURL(%q): unexpected error %v", tt.url, err)
		}
		if !tt.ok && !errors.Is(err, ErrNotPlaylistURL) {
			t.Errorf("CheckURL(%q): expected ErrNotPlaylistURL, got %v", tt.url, err)
		}
	}
}

func TestNew(t *testing.T) {
	pl, err := New("https://here/video/there.m3u8?t=1", "1.ts?some=other1\n2.ts\n")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if pl.RootURL != "https://here/video" {
		t.Errorf("expected root https://here/video, got %s", pl.RootURL)
	}
	if got := pl.SegmentURL(pl.Segments[0]); got != "https://here/video/1.ts?some=other1" {
		t.Errorf("unexpected segment url %s", got)
	}

	abs := Segment{Name: "x.ts", Entry: "https://cdn/x.ts"}
	if got := pl.SegmentURL(abs); got != "https://cdn/x.ts" {
		t.Errorf("expected absolute entry kept, got %s", got)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("https://here/there.html", "1.ts\n")
	if !errors.Is(err, ErrNotPlaylistURL) {
		t.Errorf("expected ErrNotPlaylistURL, got %v", err)
	}
}

func TestIndex(t *testing.T) {
	pl := &Playlist{Segments: []Segment{
		{Name: "a.ts", Entry: "a.ts?x=1"},
		{Name: "b.ts", Entry: "b.ts?x=2"},
	}}

	if i := pl.Index("b.ts?x=2"); i != 1 {
		t.Errorf("expected 1 by entry, got %d", i)
	}
	if i := pl.Index("b.ts"); i != 1 {
		t.Errorf("expected 1 by name, got %d", i)
	}
	if i := pl.Index("c.ts"); i != -1 {
		t.Errorf("expected -1, got %d", i)
	}
}
