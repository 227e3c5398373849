package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
)

var (
	tripFrom       string
	tripTo         string
	tripCategories []string
)

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Look up frequencies along a route, stop by stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScanner(ctx, "trip")
		if err != nil {
			return err
		}
		defer env.Close()

		categories := taxonomy.ParseCategories(tripCategories)
		trip, err := env.Scanner.PlanTrip(ctx, tripFrom, tripTo, categories, env.Creds)
		if err != nil {
			return eris.Wrap(err, "plan trip")
		}

		zap.L().Info("trip complete",
			zap.String("from", tripFrom),
			zap.String("to", tripTo),
			zap.Int("stops", len(trip.Locations)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trip)
	},
}

func init() {
	tripCmd.Flags().StringVar(&tripFrom, "from", "", "starting location (required)")
	tripCmd.Flags().StringVar(&tripTo, "to", "", "destination (required)")
	tripCmd.Flags().StringSliceVar(&tripCategories, "categories", nil, "service categories to include (default all)")
	_ = tripCmd.MarkFlagRequired("from")
	_ = tripCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(tripCmd)
}
