package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// Result lines printed by the shell.
const (
	msgDepositFailed    = "Deposit failed. Please enter a positive amount."
	msgWithdrawalFailed = "Withdrawal failed. Insufficient funds."
	msgBuyFailed        = "Buy failed. Insufficient funds or invalid quantity."
	msgSellFailed       = "Sell failed. Insufficient shares."
	msgNoTransactions   = "No transactions yet."
	msgNoHoldings       = "No holdings."
)

func depositSucceeded(balance decimal.Decimal) string {
	return "Deposit successful. New balance: " + domain.FormatMoney(balance)
}

func withdrawalSucceeded(balance decimal.Decimal) string {
	return "Withdrawal successful. New balance: " + domain.FormatMoney(balance)
}

func tradeSucceeded(verb string, balance decimal.Decimal, positions []domain.Position) string {
	return fmt.Sprintf("%s successful. New balance: %s. Holdings: %s",
		verb, domain.FormatMoney(balance), formatPositions(positions))
}

// formatPositions renders positions as {AAPL: 10, TSLA: 2}.
func formatPositions(positions []domain.Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%s: %d", p.Symbol, p.Quantity)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatPortfolio(value decimal.Decimal) string {
	return "Portfolio Value: " + domain.FormatMoney(value)
}

func formatProfitLoss(pl decimal.Decimal) string {
	return "Profit/Loss: " + domain.FormatMoney(pl)
}

func formatBalance(balance decimal.Decimal) string {
	return "Balance: " + domain.FormatMoney(balance)
}

func formatValuations(vs []domain.Valuation) string {
	if len(vs) == 0 {
		return msgNoHoldings
	}
	var b strings.Builder
	for _, v := range vs {
		fmt.Fprintf(&b, "%s x%d @%s = %s\n",
			v.Symbol, v.Quantity, domain.FormatMoney(v.Price), domain.FormatMoney(v.MarketValue()))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatQuote(symbol string, price decimal.Decimal) string {
	return fmt.Sprintf("%s: %s", symbol, domain.FormatMoney(price))
}

// formatTransactions renders the log one transaction per line, showing
// only the fields that apply to each type.
func formatTransactions(txs []domain.Transaction) string {
	if len(txs) == 0 {
		return msgNoTransactions
	}
	var b strings.Builder
	b.WriteString("Transactions:")
	for _, tx := range txs {
		b.WriteString("\n")
		b.WriteString(formatTransaction(tx))
	}
	return b.String()
}

func formatTransaction(tx domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", tx.Timestamp.UTC().Format(time.RFC3339), tx.Type)
	if tx.Symbol != "" {
		b.WriteString(" " + tx.Symbol)
	}
	if tx.IsTrade() {
		fmt.Fprintf(&b, " x%d", tx.Quantity)
	}
	if tx.Price.Valid {
		b.WriteString(" @" + tx.Price.Decimal.String())
	}
	if tx.Amount.Valid {
		b.WriteString(" $" + tx.Amount.Decimal.String())
	}
	return b.String()
}
