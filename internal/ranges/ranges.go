// Package ranges rebuilds whole media files from Vimeo byte-range segment
// URLs captured by the collector.
package ranges

import (
	"regexp"
	"sort"
	"strconv"

	"vimeoscan/internal/httputil"
)

var (
	urlPattern   = regexp.MustCompile(`https://[^\s\]]+`)
	rangePattern = regexp.MustCompile(`range=(\d+)-(\d+)`)
)

// Fragment is an inclusive byte range.
type Fragment struct {
	Start int64
	End   int64
}

// Size is the number of bytes the fragment covers.
func (f Fragment) Size() int64 { return f.End - f.Start + 1 }

// Header renders the Range request header value.
func (f Fragment) Header() string {
	return "bytes=" + strconv.FormatInt(f.Start, 10) + "-" + strconv.FormatInt(f.End, 10)
}

// Plan lists the fragments of one file, sorted by start offset.
type Plan struct {
	BaseURL   string
	Fragments []Fragment
}

// Size is the sum of the fragment sizes.
func (p Plan) Size() int64 {
	var n int64
	for _, f := range p.Fragments {
		n += f.Size()
	}
	return n
}

// Filename is a safe local name derived from the base URL.
func (p Plan) Filename() string {
	return httputil.FilenameFromURL(p.BaseURL, "segment.mp4")
}

// ExtractURLs returns every https URL in text, in order. A URL ends at
// whitespace or a closing bracket, so console output can be pasted as is.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// ParseFragment reads the range=START-END parameter of rawURL.
func ParseFragment(rawURL string) (Fragment, bool) {
	m := rangePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return Fragment{}, false
	}
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Fragment{}, false
	}
	end, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || end < start {
		return Fragment{}, false
	}
	return Fragment{Start: start, End: end}, true
}

// BuildPlans groups range URLs by base URL, in order of first appearance.
// URLs without a range parameter are ignored and duplicate fragments are
// dropped.
func BuildPlans(urls []string) []Plan {
	var order []string
	byBase := make(map[string]map[Fragment]struct{})

	for _, u := range urls {
		frag, ok := ParseFragment(u)
		if !ok {
			continue
		}
		base := httputil.StripQuery(u)
		seen, exists := byBase[base]
		if !exists {
			seen = make(map[Fragment]struct{})
			byBase[base] = seen
			order = append(order, base)
		}
		seen[frag] = struct{}{}
	}

	plans := make([]Plan, 0, len(order))
	for _, base := range order {
		frags := make([]Fragment, 0, len(byBase[base]))
		for f := range byBase[base] {
			frags = append(frags, f)
		}
		sort.Slice(frags, func(i, j int) bool {
			if frags[i].Start != frags[j].Start {
				return frags[i].Start < frags[j].Start
			}
			return frags[i].End < frags[j].End
		})
		plans = append(plans, Plan{BaseURL: base, Fragments: frags})
	}
	return plans
}
