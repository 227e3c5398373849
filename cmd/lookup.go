package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
)

var lookupCategories []string

var lookupCmd = &cobra.Command{
	Use:   "lookup <location>",
	Short: "Look up radio frequencies for a ZIP code or place name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScanner(ctx, "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		categories := taxonomy.ParseCategories(lookupCategories)
		result, err := env.Scanner.MergeAndCache(ctx, args[0], categories, env.Creds)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}

		zap.L().Info("lookup complete",
			zap.String("location", args[0]),
			zap.String("source", string(result.Source)),
			zap.Int("agencies", len(result.Agencies)),
			zap.Int("trunked_systems", len(result.TrunkedSystems)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	lookupCmd.Flags().StringSliceVar(&lookupCategories, "categories", nil, "service categories to include (default all)")
	rootCmd.AddCommand(lookupCmd)
}
