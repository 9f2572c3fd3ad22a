package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	svc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type openAccountRequest struct {
	AccountID string `json:"account_id"`
}

type cashRequest struct {
	Amount moneyParam `json:"amount"`
}

type tradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

type holdingResponse struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"market_value"`
}

type accountResponse struct {
	AccountID        string            `json:"account_id"`
	Balance          decimal.Decimal   `json:"balance"`
	InitialDeposit   decimal.Decimal   `json:"initial_deposit"`
	PortfolioValue   decimal.Decimal   `json:"portfolio_value"`
	ProfitLoss       decimal.Decimal   `json:"profit_loss"`
	Holdings         []holdingResponse `json:"holdings"`
	TransactionCount int               `json:"transaction_count"`
	CreatedAt        string            `json:"created_at"`
}

// transactionResponse carries only the fields that apply to its type.
type transactionResponse struct {
	TransactionID string           `json:"transaction_id"`
	Type          string           `json:"type"`
	Timestamp     string           `json:"timestamp"`
	Symbol        string           `json:"symbol,omitempty"`
	Quantity      int64            `json:"quantity,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

type receiptResponse struct {
	AccountID   string              `json:"account_id"`
	Transaction transactionResponse `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

type balanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type holdingsResponse struct {
	AccountID string            `json:"account_id"`
	Holdings  []holdingResponse `json:"holdings"`
}

type portfolioResponse struct {
	AccountID      string          `json:"account_id"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

type profitLossResponse struct {
	AccountID      string          `json:"account_id"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
}

type transactionListResponse struct {
	AccountID    string                `json:"account_id"`
	Transactions []transactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

type closeAccountResponse struct {
	AccountID        string          `json:"account_id"`
	Reason           string          `json:"reason"`
	Balance          decimal.Decimal `json:"balance"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	ProfitLoss       decimal.Decimal `json:"profit_loss"`
	TransactionCount int             `json:"transaction_count"`
	ClosedAt         string          `json:"closed_at"`
}

// Open handles POST /accounts.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if r.ContentLength != 0 {
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	summary, err := h.svc.Open(req.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildAccountResponse(summary))
}

// Get handles GET /accounts/{account_id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAccountResponse(summary))
}

// Close handles DELETE /accounts/{account_id}.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Close(chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, closeAccountResponse{
		AccountID:        c.AccountID,
		Reason:           c.Reason,
		Balance:          c.Balance,
		PortfolioValue:   c.PortfolioValue,
		ProfitLoss:       c.ProfitLoss,
		TransactionCount: c.TransactionCount,
		ClosedAt:         formatTime(c.ClosedAt),
	})
}

// Deposit handles POST /accounts/{account_id}/deposit.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.cash(w, r, h.svc.Deposit)
}

// Withdraw handles POST /accounts/{account_id}/withdraw.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.cash(w, r, h.svc.Withdraw)
}

// Buy handles POST /accounts/{account_id}/buy.
func (h *AccountHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Buy)
}

// Sell handles POST /accounts/{account_id}/sell.
func (h *AccountHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Sell)
}

func (h *AccountHandler) cash(
	w http.ResponseWriter, r *http.Request,
	op func(accountID string, amount decimal.Decimal) (*service.Receipt, error),
) {
	var req cashRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	accountID := chi.URLParam(r, "account_id")
	receipt, err := op(accountID, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildReceiptResponse(accountID, receipt))
}

func (h *AccountHandler) trade(
	w http.ResponseWriter, r *http.Request,
	op func(accountID, symbol string, quantity int64) (*service.Receipt, error),
) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	accountID := chi.URLParam(r, "account_id")
	receipt, err := op(accountID, req.Symbol, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildReceiptResponse(accountID, receipt))
}

// GetBalance handles GET /accounts/{account_id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	balance, err := h.svc.Balance(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

// GetHoldings handles GET /accounts/{account_id}/holdings.
func (h *AccountHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	holdings, err := h.svc.Holdings(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, holdingsResponse{AccountID: accountID, Holdings: buildHoldings(holdings)})
}

// GetPortfolio handles GET /accounts/{account_id}/portfolio.
func (h *AccountHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	value, err := h.svc.PortfolioValue(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{AccountID: accountID, PortfolioValue: value})
}

// GetProfitLoss handles GET /accounts/{account_id}/profit-loss.
func (h *AccountHandler) GetProfitLoss(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	report, err := h.svc.ProfitLoss(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profitLossResponse{
		AccountID:      accountID,
		InitialDeposit: report.InitialDeposit,
		PortfolioValue: report.PortfolioValue,
		ProfitLoss:     report.ProfitLoss,
	})
}

// ListTransactions handles GET /accounts/{account_id}/transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	query := r.URL.Query()

	q := service.TransactionQuery{Type: domain.TransactionType(query.Get("type"))}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", p.name+" must be a valid integer")
			return
		}
		if n == 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", p.name+" must be >= 1")
			return
		}
		*p.dst = n
	}

	page, err := h.svc.Transactions(accountID, q)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	txs := make([]transactionResponse, len(page.Items))
	for i, tx := range page.Items {
		txs[i] = buildTransactionResponse(tx)
	}
	WriteJSON(w, http.StatusOK, transactionListResponse{
		AccountID:    accountID,
		Transactions: txs,
		Total:        page.Total,
		Page:         page.Page,
		Limit:        page.Limit,
	})
}

func buildAccountResponse(s *service.AccountSummary) accountResponse {
	return accountResponse{
		AccountID:        s.AccountID,
		Balance:          s.Balance,
		InitialDeposit:   s.InitialDeposit,
		PortfolioValue:   s.PortfolioValue,
		ProfitLoss:       s.ProfitLoss,
		Holdings:         buildHoldings(s.Holdings),
		TransactionCount: s.TransactionCount,
		CreatedAt:        formatTime(s.CreatedAt),
	}
}

func buildHoldings(vs []domain.Valuation) []holdingResponse {
	out := make([]holdingResponse, len(vs))
	for i, v := range vs {
		out[i] = holdingResponse{
			Symbol:      v.Symbol,
			Quantity:    v.Quantity,
			Price:       v.Price,
			MarketValue: v.MarketValue(),
		}
	}
	return out
}

func buildReceiptResponse(accountID string, r *service.Receipt) receiptResponse {
	return receiptResponse{
		AccountID:   accountID,
		Transaction: buildTransactionResponse(r.Transaction),
		Balance:     r.Balance,
	}
}

func buildTransactionResponse(tx domain.Transaction) transactionResponse {
	resp := transactionResponse{
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Timestamp:     formatTime(tx.Timestamp),
		Symbol:        tx.Symbol,
		Quantity:      tx.Quantity,
	}
	if tx.Price.Valid {
		p := tx.Price.Decimal
		resp.Price = &p
	}
	if tx.Amount.Valid {
		a := tx.Amount.Decimal
		resp.Amount = &a
	}
	return resp
}
