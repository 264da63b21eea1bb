package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/veracity-cli/internal/observability"
	"github.com/xkilldash9x/veracity-cli/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse <requirements-file>",
	Short: "Parse a requirements document and print the resulting suite as JSON",
	Long:  "Parses the document without touching a browser or model API, so\nrequirement wording can be checked before spending a real run on it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suite, err := parser.NewParser(observability.GetLogger()).ParseFile(args[0])
		if err != nil {
			return fmt.Errorf("parsing requirements: %w", err)
		}

		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(suite, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding suite: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
