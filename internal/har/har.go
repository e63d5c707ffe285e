// Package har reads request URLs from an exported HTTP Archive, standing in
// for a live page's resource timings.
package har

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Log holds the request URLs of a HAR file in file order.
type Log struct {
	urls []string
}

// Load reads and validates the HAR file at path.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "reading har")
	}
	return Parse(data)
}

// Parse extracts log.entries[*].request.url from HAR JSON.
func Parse(data []byte) (*Log, error) {
	if !gjson.ValidBytes(data) {
		return nil, eris.New("har: invalid json")
	}
	entries := gjson.GetBytes(data, "log.entries")
	if !entries.Exists() {
		return nil, eris.New("har: missing log.entries")
	}

	l := &Log{}
	entries.ForEach(func(_, entry gjson.Result) bool {
		if u := entry.Get("request.url").String(); u != "" {
			l.urls = append(l.urls, u)
		}
		return true
	})
	return l, nil
}

// Resources returns the recorded request URLs.
func (l *Log) Resources(context.Context) ([]string, error) {
	out := make([]string, len(l.urls))
	copy(out, l.urls)
	return out, nil
}

// Len returns the number of recorded requests.
func (l *Log) Len() int { return len(l.urls) }
