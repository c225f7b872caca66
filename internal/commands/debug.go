package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/apiclient"
)

func newDebugCommand(_ *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Troubleshooting helpers",
	}

	var compact bool
	analyze := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Explain where a saved login response keeps its token",
		Long: `Reads a login response body saved as JSON ("-" for stdin) and reports
whether a usable token is present, where it was found, and what is missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			var payload any
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("%s is not valid JSON: %w", args[0], err)
			}

			analysis := apiclient.AnalyzeLoginPayload(payload)
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(analysis); err != nil {
				return err
			}
			if !analysis.TokenFound {
				return ErrCommandFailed
			}
			return nil
		},
	}
	analyze.Flags().BoolVar(&compact, "compact", false, "Print single-line JSON")

	cmd.AddCommand(analyze)
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
