// Package cli implements ledgerctl, an interactive text shell over a single
// in-process ledger.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/ledger"
)

// Shell reads commands line by line and runs them against one ledger.
type Shell struct {
	ledger *ledger.Ledger
	prices ledger.PriceSource
	out    io.Writer
	logger *slog.Logger

	// Prompt is printed before each line is read. Empty disables it.
	Prompt string
}

// NewShell creates a Shell over l writing results to out.
func NewShell(l *ledger.Ledger, prices ledger.PriceSource, out io.Writer, logger *slog.Logger) *Shell {
	return &Shell{ledger: l, prices: prices, out: out, logger: logger, Prompt: "> "}
}

// Run executes every line of in until EOF, an exit command or ctx is
// cancelled. Command errors are printed and do not stop the shell.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(s.out, "Trading account %s. Type 'help' for commands.\n", s.ledger.ID())

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Prompt != "" {
			fmt.Fprint(s.out, s.Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := s.Execute(scanner.Text())
		if err != nil {
			fmt.Fprintln(s.out, "Error:", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single command line. It reports whether the line asked
// the shell to exit.
func (s *Shell) Execute(line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	root := s.commandTree(&quit)
	root.SetArgs(args)
	root.SetOut(s.out)
	root.SetErr(s.out)
	err = root.Execute()
	return quit, err
}

// commandTree builds a fresh command tree per line so no flag or argument
// state carries over between lines.
func (s *Shell) commandTree(quit *bool) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Trading account shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Leaf commands take raw words so that "-5" reaches the ledger as an
	// amount instead of being parsed as a flag.
	leaf := func(use, short string, args cobra.PositionalArgs, run func(args []string) error) *cobra.Command {
		return &cobra.Command{
			Use:                use,
			Short:              short,
			Args:               args,
			DisableFlagParsing: true,
			RunE: func(_ *cobra.Command, args []string) error {
				return run(args)
			},
		}
	}

	root.AddCommand(
		leaf("deposit AMOUNT", "Add cash to the account", cobra.ExactArgs(1), s.deposit),
		leaf("withdraw AMOUNT", "Take cash out of the account", cobra.ExactArgs(1), s.withdraw),
		leaf("buy SYMBOL QUANTITY", "Buy shares at the current price", cobra.ExactArgs(2), s.buy),
		leaf("sell SYMBOL QUANTITY", "Sell shares at the current price", cobra.ExactArgs(2), s.sell),
		leaf("balance", "Show available cash", cobra.NoArgs, s.balance),
		leaf("holdings", "Show positions at current prices", cobra.NoArgs, s.holdings),
		leaf("portfolio", "Show cash plus market value of holdings", cobra.NoArgs, s.portfolio),
		leaf("profit", "Show profit or loss against the first deposit", cobra.NoArgs, s.profit),
		leaf("transactions", "List every transaction, oldest first", cobra.NoArgs, s.transactions),
		leaf("price SYMBOL", "Show the current price of a symbol", cobra.ExactArgs(1), s.price),
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "Leave the shell",
			Args:    cobra.NoArgs,
			Run: func(*cobra.Command, []string) {
				*quit = true
			},
		},
	)
	return root
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Shell) deposit(args []string) error {
	amount, err := domain.ParseAmount(args[0])
	if err != nil {
		return err
	}
	if !s.ledger.Deposit(amount) {
		s.logRejection("deposit", s.ledger.CheckDeposit(amount))
		s.println(msgDepositFailed)
		return nil
	}
	s.println(depositSucceeded(s.ledger.Balance()))
	return nil
}

func (s *Shell) withdraw(args []string) error {
	amount, err := domain.ParseAmount(args[0])
	if err != nil {
		return err
	}
	if !s.ledger.Withdraw(amount) {
		s.logRejection("withdraw", s.ledger.CheckWithdraw(amount))
		s.println(msgWithdrawalFailed)
		return nil
	}
	s.println(withdrawalSucceeded(s.ledger.Balance()))
	return nil
}

func (s *Shell) buy(args []string) error {
	symbol, quantity, err := parseTrade(args)
	if err != nil {
		return err
	}
	if !s.ledger.Buy(symbol, quantity) {
		s.logRejection("buy", s.ledger.CheckBuy(symbol, quantity))
		s.println(msgBuyFailed)
		return nil
	}
	s.println(tradeSucceeded("Buy", s.ledger.Balance(), s.ledger.Positions()))
	return nil
}

func (s *Shell) sell(args []string) error {
	symbol, quantity, err := parseTrade(args)
	if err != nil {
		return err
	}
	if !s.ledger.Sell(symbol, quantity) {
		s.logRejection("sell", s.ledger.CheckSell(symbol, quantity))
		s.println(msgSellFailed)
		return nil
	}
	s.println(tradeSucceeded("Sell", s.ledger.Balance(), s.ledger.Positions()))
	return nil
}

func parseTrade(args []string) (string, int64, error) {
	symbol, err := domain.NormalizeSymbol(args[0])
	if err != nil {
		return "", 0, err
	}
	quantity, err := domain.ParseQuantity(args[1])
	if err != nil {
		return "", 0, err
	}
	return symbol, quantity, nil
}

func (s *Shell) balance([]string) error {
	s.println(formatBalance(s.ledger.Balance()))
	return nil
}

func (s *Shell) holdings([]string) error {
	s.println(formatValuations(s.ledger.Valuations()))
	return nil
}

func (s *Shell) portfolio([]string) error {
	s.println(formatPortfolio(s.ledger.PortfolioValue()))
	return nil
}

func (s *Shell) profit([]string) error {
	s.println(formatProfitLoss(s.ledger.ProfitLoss()))
	return nil
}

func (s *Shell) transactions([]string) error {
	s.println(formatTransactions(s.ledger.Transactions()))
	return nil
}

func (s *Shell) price(args []string) error {
	symbol, err := domain.NormalizeSymbol(args[0])
	if err != nil {
		return err
	}
	s.println(formatQuote(symbol, s.prices.Price(symbol)))
	return nil
}

func (s *Shell) logRejection(op string, reason error) {
	if reason == nil {
		return
	}
	s.logger.Debug("operation rejected", "account_id", s.ledger.ID(), "operation", op, "reason", reason.Error())
}
