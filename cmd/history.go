package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vimeoscan/internal/store"
	"vimeoscan/internal/ui"
)

var (
	flagHistoryLimit  int
	flagHistoryDelete bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored captures",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 50, "Number of captures to list")
	historyCmd.Flags().BoolVar(&flagHistoryDelete, "delete", false, "Delete the selected capture")
}

func historyRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	captures, err := st.List(ctx, flagHistoryLimit)
	if err != nil {
		return eris.Wrap(err, "loading history")
	}

	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(captures)
	}

	if len(captures) == 0 {
		fmt.Fprintln(out, "No captures stored yet.")
		return nil
	}

	items := store.FormatForDisplay(captures)
	if !interactive() {
		for _, item := range items {
			fmt.Fprintln(out, item)
		}
		return nil
	}

	idx, err := ui.Select("History", items)
	if err != nil {
		return err
	}
	selected := captures[idx]
	debugf("selected capture %s", selected.ID)

	if flagHistoryDelete {
		ok, err := ui.Confirm(fmt.Sprintf("Delete capture of %s?", selected.Page))
		if err != nil || !ok {
			return err
		}
		if err := st.Delete(ctx, selected.ID); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted.")
		return nil
	}

	full, err := st.Get(ctx, selected.ID)
	if err != nil {
		return err
	}
	for i, u := range full.URLs {
		fmt.Fprintf(out, "  [%d] %s\n", i, u)
	}
	return nil
}
