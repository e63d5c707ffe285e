package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vimeoscan/internal/clip"
	"vimeoscan/internal/collect"
	"vimeoscan/internal/ui"
)

var copyCmd = &cobra.Command{
	Use:   "copy [index]",
	Short: "Copy one URL of the latest capture to the clipboard",
	Long: `copy puts the URL at the given index of the latest capture on the
clipboard. Indexes follow the order URLs were collected in; an index past
the end does nothing. Without an index the URL is picked with fzf.`,
	Args: cobra.MaximumNArgs(1),
	RunE: copyRun,
}

func copyRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	capture, err := st.Latest(ctx)
	if err != nil {
		return eris.Wrap(err, "loading latest capture")
	}

	var idx int
	if len(args) > 0 {
		if idx, err = strconv.Atoi(args[0]); err != nil {
			return eris.Errorf("index must be a number, got %q", args[0])
		}
	} else {
		if !interactive() {
			return eris.New("no index given")
		}
		if idx, err = ui.Select("Copy", capture.URLs); err != nil {
			return err
		}
	}

	return copyAt(cmd.OutOrStdout(), clipboard(), capture.URLs, idx)
}

// copyAt copies urls[idx]. An index outside urls does nothing.
func copyAt(w io.Writer, cb clip.Clipboard, urls []string, idx int) error {
	u, res := collect.CopyIndex(cb, urls, idx)
	switch {
	case u == "":
		debugf("no URL at index %d (capture has %d)", idx, len(urls))
		return nil
	case res.Err != nil:
		// Still print it so the user can copy by hand.
		fmt.Fprintln(w, u)
		return eris.Wrap(res.Err, "copying URL")
	}
	fmt.Fprintf(w, "✓ URL [%d] copied\n", idx)
	return nil
}
