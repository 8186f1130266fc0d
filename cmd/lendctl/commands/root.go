package commands

import (
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"libralend/internal/clients"
)

var (
	circulationURL string
	circulation    *clients.CirculationClient
	out            io.Writer = os.Stdout
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "lendctl",
		Short:        "Operate the library lending service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			circulation = clients.NewCirculationClient(circulationURL)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&circulationURL, "circulation-url", envOr("CIRCULATION_SERVICE_URL", "http://localhost:8082"), "circulation service base URL")

	root.AddCommand(loanCmd(), auditCmd())
	return root
}

func printJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
