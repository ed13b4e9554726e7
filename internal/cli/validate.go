package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/deliveryhub/internal/featureflags"
	"github.com/aryan0dhankhar/deliveryhub/internal/location"
)

func newValidateCommand() *cobra.Command {
	var strict, partial bool
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a location JSON document without contacting the server",
		Long: `Runs the server's location rules on a JSON object and prints the
normalized location. Use "-" to read from stdin.

` + providerHelp(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var payload map[string]any
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("%s is not a JSON object: %w", args[0], err)
			}
			// accept a whole source/destination body as well as a bare location
			if inner, ok := payload["location"].(map[string]any); ok {
				payload = inner
			}

			loc, err := location.NewValidator(strict).Validate(payload, partial)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(loc.Fields())
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", featureflags.Enabled(featureflags.StrictProviderAuth), "enforce auth rules for every provider")
	cmd.Flags().BoolVar(&partial, "partial", false, "validate only the keys present, as a PATCH would")
	return cmd
}

// providerHelp lists the accepted cloud/product pairs
func providerHelp() string {
	var b strings.Builder
	b.WriteString("Supported products:\n")
	for _, cloud := range location.Clouds() {
		fmt.Fprintf(&b, "  %s: %s\n", cloud, strings.Join(location.Products(cloud), ", "))
	}
	return b.String()
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(data), nil
}
