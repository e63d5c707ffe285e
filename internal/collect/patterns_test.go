package collect

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"vimeoscan/internal/media"
)

func TestIsMedia(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://host/video/1234.mp4", true},
		{"https://host/clip.m4v", true},
		{"https://vod-adaptive.akamaized.net/exp=1/seg", true},
		{"https://skyfire.vimeocdn.com/v2/range/prot/x", true},
		{"https://host/avf/seg-3", true},
		{"https://host/manifest.m3u8", false},
		{"https://host/app.js", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMedia(tt.url))
		})
	}
}

func TestIsManifest(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://host/stream.mpd", true},
		{"https://host/index.m3u8", true},
		{"https://host/master.json?base64_init=1", true},
		{"https://host/variant/playlist", true},
		{"https://host/video/1234.mp4", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsManifest(tt.url))
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		url  string
		want media.Bucket
	}{
		{"https://host/video/1234.mp4", media.Video},
		{"https://host/audio/seg.mp4", media.Video},
		{"https://host/audio/seg.m4a", media.Audio},
		{"https://host/manifest.m3u8", media.Other},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestPartitionIsDisjoint(t *testing.T) {
	urls := []string{
		"https://h/a.mp4",
		"https://h/audio/a.mp4",
		"https://h/audio/b.m4a",
		"https://h/master.json",
	}
	video, audio, other := Partition(urls)
	assert.Equal(t, []string{"https://h/a.mp4", "https://h/audio/a.mp4"}, video)
	assert.Equal(t, []string{"https://h/audio/b.m4a"}, audio)
	assert.Equal(t, []string{"https://h/master.json"}, other)
	assert.Equal(t, len(urls), len(video)+len(audio)+len(other))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc...", truncate("abc", 60))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "çã...", truncate("çãõ", 2))
}

func TestSet(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Items())
	assert.True(t, s.Contains("b"))

	u, ok := s.At(1)
	assert.True(t, ok)
	assert.Equal(t, "b", u)
	_, ok = s.At(2)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)

	items := s.Items()
	items[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Items(), "Items must return a copy")
}

func TestSetConcurrentAdds(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, u := range []string{"x", "y", "z"} {
				s.Add(u)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, s.Len())
}
