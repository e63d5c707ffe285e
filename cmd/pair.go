package cmd

import (
	"fmt"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vimeoscan/internal/browser"
	"vimeoscan/internal/pair"
)

var flagHTML string

var pairCmd = &cobra.Command{
	Use:   "pair [page-url]",
	Short: "Pair lesson titles with their embedded player URLs",
	Long: `pair matches each title element with the embed at the same position
and prints the pairs as JSON. With --html the page is read from a saved
file; a page URL given alongside it is used to resolve relative embeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: pairRun,
}

func init() {
	pairCmd.Flags().StringVar(&flagHTML, "html", "", "Read the page from a saved HTML file")
}

func pairRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pageURL, err := pageArg(args, flagHTML != "")
	if err != nil {
		return err
	}

	var (
		doc  pair.Document
		base *url.URL
	)
	if flagHTML != "" {
		d, err := pair.LoadFile(flagHTML)
		if err != nil {
			return err
		}
		doc = d
		if pageURL != "" {
			if base, err = url.Parse(pageURL); err != nil {
				return eris.Wrap(err, "parsing page URL")
			}
		}
	} else {
		sess, err := browser.Open(ctx, browserOptions())
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Navigate(ctx, pageURL); err != nil {
			return err
		}
		if doc, err = sess.Document(ctx); err != nil {
			return err
		}
		if base, err = sess.BaseURL(ctx); err != nil {
			return err
		}
	}

	sel := pair.Selectors{Title: cfg.TitleSelector, Embed: cfg.EmbedSelector, Attr: cfg.EmbedAttr}
	var out io.Writer = cmd.OutOrStdout()
	if flagJSON {
		out = io.Discard
	}

	res := pair.New(sel,
		pair.WithBaseURL(base),
		pair.WithClipboard(clipboard()),
		pair.WithOutput(out),
	).Run(doc)
	debugf("paired %d titles", len(res.Entries))

	if flagJSON {
		fmt.Fprintln(cmd.OutOrStdout(), res.JSON)
	}
	return nil
}
