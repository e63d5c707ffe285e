package collect

import (
	"strings"

	"vimeoscan/internal/media"
)

// mediaMarkers identify segment and progressive media requests.
var mediaMarkers = []string{
	"mp4",
	".m4v",
	"avf",
	"vod-adaptive",
	"/v2/range/",
}

// manifestMarkers identify DASH/HLS index files.
var manifestMarkers = []string{
	".mpd",
	".m3u8",
	"master",
	"variant",
}

// IsMedia reports whether u looks like a media segment or file URL.
func IsMedia(u string) bool {
	return containsAny(u, mediaMarkers)
}

// IsManifest reports whether u looks like a manifest URL.
func IsManifest(u string) bool {
	return containsAny(u, manifestMarkers)
}

// Classify buckets a URL for display. The mp4 test runs first, so a URL
// carrying both "mp4" and "audio" is video.
func Classify(u string) media.Bucket {
	switch {
	case strings.Contains(u, "mp4"):
		return media.Video
	case strings.Contains(u, "audio"):
		return media.Audio
	default:
		return media.Other
	}
}

// Partition splits urls into the three display buckets, keeping order.
func Partition(urls []string) (video, audio, other []string) {
	for _, u := range urls {
		switch Classify(u) {
		case media.Video:
			video = append(video, u)
		case media.Audio:
			audio = append(audio, u)
		default:
			other = append(other, u)
		}
	}
	return video, audio, other
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
