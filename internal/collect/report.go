package collect

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true)
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// otherShown caps how many "other" URLs the summary lists.
const otherShown = 5

func rule() string {
	return strings.Repeat("=", 70)
}

func banner(title string) string {
	return bannerStyle.Render(rule() + "\n" + title + "\n" + rule())
}

// truncate keeps the first n runes of s and always appends "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

func (c *Collector) printSummary(res *Result) {
	c.printf("%s\n\n", banner(pluralURLs(len(res.URLs))))

	if len(res.Video) > 0 {
		c.printf("%s\n", headStyle.Render("VIDEO (no audio):"))
		for i, u := range res.Video {
			c.printf("  [%d] %s\n", i, u)
		}
		c.printf("\n")
	}

	if len(res.Audio) > 0 {
		c.printf("%s\n", headStyle.Render("AUDIO:"))
		for i, u := range res.Audio {
			c.printf("  [%d] %s\n", i, u)
		}
		c.printf("\n")
	}

	if len(res.Other) > 0 {
		c.printf("%s\n", headStyle.Render("OTHER (manifests, etc):"))
		for i, u := range res.Other {
			if i == otherShown {
				break
			}
			c.printf("  [%d] %s\n", i, truncate(u, 80))
		}
		if len(res.Other) > otherShown {
			c.printf("  ... and %d more\n", len(res.Other)-otherShown)
		}
		c.printf("\n")
	}
}

func (c *Collector) printNextSteps() {
	c.printf("%s\n", bannerStyle.Render(rule()+"\nNEXT STEPS:\n"+rule()))
	c.printf("\n1. Find the VIDEO and AUDIO URLs above\n")
	c.printf("2. Copy both URLs\n")
	c.printf("3. Merge them with your muxing tool, or rebuild range segments:\n\n")
	c.printf("   vimeoscan ranges --latest\n\n")
	c.printf("Tip: vimeoscan copy N copies a single URL\n")
	c.printf("Example: vimeoscan copy 0\n\n")
}

func pluralURLs(n int) string {
	if n == 1 {
		return "RESULT: 1 URL FOUND"
	}
	return fmt.Sprintf("RESULT: %d URLS FOUND", n)
}
