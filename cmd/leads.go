package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Print persisted leads as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("leads"); err != nil {
			return err
		}

		st, err := initSink(ctx)
		if err != nil {
			return eris.Wrap(err, "init sink")
		}
		defer st.Close()

		all, err := st.ReadAll(ctx)
		if err != nil {
			return eris.Wrap(err, "read leads")
		}

		return printJSON(all)
	},
}

func init() {
	rootCmd.AddCommand(leadsCmd)
}
