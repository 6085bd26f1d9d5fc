package main

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and seed the content catalog",
	Long:  "Create missing tables and insert the built-in challenges and demo videos into empty tables. Running it again changes nothing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApplication(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.close(ctx)
		return app.seed(ctx)
	},
}
