package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ui"
)

func newAccountsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the ledger accounts statements can be matched to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			l, closeLedger, err := openLedger(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeLedger()

			snap, err := accounts.Fetch(cmd.Context(), l)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range snap.All() {
				fmt.Fprintf(out, "%6d  %-32s %-4s %-8s %s\n",
					a.ID, ui.BlueText(a.Name), strings.ToUpper(a.Currency), a.Type, a.Institution)
			}
			fmt.Fprintf(out, "%d accounts\n", snap.Len())
			return nil
		},
	}
}
