// Package pair matches visible video titles with embedded player URLs.
//
// Matching is positional: the Nth title element belongs to the Nth embed
// element in document order. There is no correlation key on these pages, so
// a reordered or missing embed shifts every later pair.
package pair

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vimeoscan/internal/clip"
	"vimeoscan/internal/media"
)

// Document is a queryable DOM tree. *goquery.Document satisfies it.
type Document interface {
	Find(selector string) *goquery.Selection
}

// Selectors locate title and embed elements.
type Selectors struct {
	Title string // CSS selector for title elements
	Embed string // CSS selector for embed elements
	Attr  string // Embed attribute holding the player URL
}

// DefaultSelectors matches course pages with h2 titles above Vimeo iframes.
func DefaultSelectors() Selectors {
	return Selectors{
		Title: "h2.text-title.pt-1",
		Embed: `iframe[src*="player.vimeo.com"]`,
		Attr:  "src",
	}
}

// Pair walks the title elements and pairs each with the embed at the same
// index. Titles that are blank or have no embed URL produce no entry.
func Pair(doc Document, sel Selectors, base *url.URL) []media.VideoEntry {
	titles := doc.Find(sel.Title)
	embeds := doc.Find(sel.Embed)

	entries := make([]media.VideoEntry, 0, titles.Length())
	titles.Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Text())
		if title == "" || i >= embeds.Length() {
			return
		}

		src, ok := embeds.Eq(i).Attr(sel.Attr)
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}

		entries = append(entries, media.VideoEntry{
			Title: title,
			URL:   resolve(base, src),
		})
	})
	return entries
}

// Encode renders entries as a JSON array indented with four spaces.
func Encode(entries []media.VideoEntry) (string, error) {
	if entries == nil {
		entries = []media.VideoEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return "", eris.Wrap(err, "encoding pairs")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// LoadFile parses a saved HTML page.
func LoadFile(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "opening html")
	}
	defer f.Close()
	return Load(f)
}

// Load parses HTML from r.
func Load(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "parsing html")
	}
	return doc, nil
}

// Result is the outcome of one Run.
type Result struct {
	Entries   []media.VideoEntry
	JSON      string
	Clipboard clip.Result
}

// Pairer runs Pair, prints the JSON and copies it to the clipboard.
type Pairer struct {
	sel       Selectors
	base      *url.URL
	clipboard clip.Clipboard
	out       io.Writer
	log       *zap.Logger
}

// Option configures a Pairer.
type Option func(*Pairer)

// WithBaseURL resolves relative embed URLs against base.
func WithBaseURL(base *url.URL) Option { return func(p *Pairer) { p.base = base } }

// WithClipboard sets the clipboard. The default rejects every write.
func WithClipboard(cb clip.Clipboard) Option { return func(p *Pairer) { p.clipboard = cb } }

// WithOutput sets where the JSON block is printed.
func WithOutput(w io.Writer) Option { return func(p *Pairer) { p.out = w } }

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option { return func(p *Pairer) { p.log = l } }

// New creates a Pairer.
func New(sel Selectors, opts ...Option) *Pairer {
	p := &Pairer{
		sel:       sel,
		clipboard: clip.Disabled{},
		out:       io.Discard,
		log:       zap.L(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	markStyle = lipgloss.NewStyle().Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Run pairs doc and reports the JSON. Clipboard failures are logged and
// returned in the Result.
func (p *Pairer) Run(doc Document) *Result {
	entries := Pair(doc, p.sel, p.base)
	p.log.Debug("paired titles", zap.Int("pairs", len(entries)))

	text, err := Encode(entries)
	if err != nil {
		p.log.Error("encoding pairs failed", zap.Error(err))
	}

	fmt.Fprintln(p.out, markStyle.Render("=== EXTRACTED JSON ==="))
	fmt.Fprintln(p.out, text)
	fmt.Fprintln(p.out, markStyle.Render("=== END ==="))

	res := &Result{Entries: entries, JSON: text}
	res.Clipboard = clip.Copy(p.clipboard, text)
	if res.Clipboard.Copied {
		fmt.Fprintln(p.out, okStyle.Render("✓ JSON copied to clipboard"))
	} else {
		p.log.Info("clipboard write failed", zap.Error(res.Clipboard.Err))
		fmt.Fprintln(p.out, errStyle.Render(fmt.Sprintf("could not copy: %v", res.Clipboard.Err)))
	}
	return res
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
