package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <zip>",
	Short: "Resolve a ZIP code to its county and state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.RadioRef.HasCredentials() {
			return eris.New("resolve requires radioref credentials")
		}

		env, err := initScanner(cmd.Context(), "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		info, err := env.Scanner.ResolveLocation(cmd.Context(), args[0], env.Creds)
		if err != nil {
			return eris.Wrap(err, "resolve location")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
