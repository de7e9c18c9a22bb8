package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "v0.1.0"

// Execute builds and runs the reasoncardd root command (grounded on
// cprotocol's Execute(ctx)/cobra.Command{Use,Short} shape).
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:     "reasoncardd",
		Short:   "reasoncard significant-move detector and reason-card service",
		Version: version,
		Run:     runDefaultEntry,
	}
	root.AddCommand(serveCmd(ctx))
	return root.ExecuteContext(ctx)
}

// runDefaultEntry mirrors cryptorun's TTY-gated default: an interactive
// terminal gets a short pointer to `serve`, a non-interactive one gets
// an actionable error instead of silently hanging.
func runDefaultEntry(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "reasoncardd requires a subcommand in non-interactive use.")
		fmt.Fprintln(os.Stderr, "  reasoncardd serve --config config.yaml")
		os.Exit(2)
	}
	fmt.Println("reasoncard daemon. Run `reasoncardd serve` to start the HTTP API.")
	log.Info().Msg("reasoncardd idle (no subcommand given)")
}
