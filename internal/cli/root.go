package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/efreitasn/tradeledger/internal/ledger"
	"github.com/efreitasn/tradeledger/internal/obs"
	"github.com/efreitasn/tradeledger/internal/pricing"
)

// NewCommand returns the ledgerctl root command. With no arguments it
// starts an interactive shell on in; "-c LINE" runs one command and exits.
func NewCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		accountID  string
		pricesFile string
		logLevel   string
		commands   []string
	)

	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Interactive trading account ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := obs.CheckLevel(logLevel); err != nil {
				return err
			}

			table := pricing.Reference()
			if pricesFile != "" {
				var err error
				if table, err = pricing.LoadFile(pricesFile); err != nil {
					return fmt.Errorf("loading prices: %w", err)
				}
			}

			logger := obs.NewLogger(errOut, logLevel)
			l := ledger.New(accountID, table)
			shell := NewShell(l, table, out, logger)

			if len(commands) > 0 {
				for _, line := range commands {
					quit, err := shell.Execute(line)
					if err != nil {
						return err
					}
					if quit {
						break
					}
				}
				return nil
			}
			return shell.Run(cmd.Context(), in)
		},
	}

	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVar(&accountID, "account", "user123", "account id of the session ledger")
	f.StringVar(&pricesFile, "prices-file", "", "YAML price table (default: built-in reference prices)")
	f.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.StringArrayVarP(&commands, "command", "c", nil, "run a command line instead of reading from stdin (repeatable)")
	return cmd
}
