// Package media defines shared types for the vimeoscan application.
package media

import "time"

// Bucket is the display classification of a collected URL.
type Bucket int

const (
	Video Bucket = iota
	Audio
	Other
)

func (b Bucket) String() string {
	switch b {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "other"
	}
}

// ParseBucket is the inverse of Bucket.String. Unknown labels map to Other.
func ParseBucket(s string) Bucket {
	switch s {
	case "video":
		return Video
	case "audio":
		return Audio
	default:
		return Other
	}
}

// Source identifies which collection step contributed a URL.
type Source int

const (
	Resources Source = iota
	XHR
	Fetch
	Cache
	Manifests
)

func (s Source) String() string {
	switch s {
	case Resources:
		return "resources"
	case XHR:
		return "xhr"
	case Fetch:
		return "fetch"
	case Cache:
		return "cache"
	case Manifests:
		return "manifests"
	default:
		return "unknown"
	}
}

// VideoEntry pairs a visible title with the URL of its embedded player.
type VideoEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Capture is one stored collection run.
type Capture struct {
	ID        string    `json:"id"`             // uuid
	Page      string    `json:"page"`           // Page URL or input file the URLs were collected from
	CreatedAt time.Time `json:"created_at"`     // UTC
	URLs      []string  `json:"urls,omitempty"` // Collected URLs in set order
	Count     int       `json:"count"`          // len(URLs); filled by listings that skip the URLs
}
