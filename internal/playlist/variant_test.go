package playlist

import "testing"

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
360p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720
720p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1280x720
720p-hq/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1400000,RESOLUTION=842x480
480p/index.m3u8
`

func TestBestVariant(t *testing.T) {
	uri, isMaster, err := BestVariant(masterPlaylist)
	if err != nil {
		t.Fatalf("BestVariant: %v", err)
	}
	if !isMaster {
		t.Fatal("expected master playlist")
	}
	if uri != "720p-hq/index.m3u8" {
		t.Errorf("expected 720p-hq/index.m3u8, got %s", uri)
	}
}

func TestBestVariantMediaPlaylist(t *testing.T) {
	media := "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\n1.ts\n#EXTINF:10.0,\n2.ts\n#EXT-X-ENDLIST\n"
	_, isMaster, err := BestVariant(media)
	if err != nil {
		t.Fatalf("BestVariant: %v", err)
	}
	if isMaster {
		t.Error("expected media playlist")
	}
}

func TestResolutionPixels(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1280x720", 921600},
		{"", 0},
		{"adaptive", 0},
		{"12x", 0},
	}

	for _, tt := range tests {
		if got := resolutionPixels(tt.in); got != tt.want {
			t.Errorf("resolutionPixels(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
