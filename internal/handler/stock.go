package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/service"
)

// StockHandler handles HTTP requests for stock endpoints.
type StockHandler struct {
	svc *service.StockService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(svc *service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

type quoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Listed bool            `json:"listed"`
	Traded bool            `json:"traded"`
}

type stockListResponse struct {
	Stocks       []quoteResponse `json:"stocks"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

type setPriceRequest struct {
	Price moneyParam `json:"price"`
}

// List handles GET /stocks.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	quotes := h.svc.List()
	out := make([]quoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = buildQuoteResponse(&q)
	}
	WriteJSON(w, http.StatusOK, stockListResponse{Stocks: out, DefaultPrice: h.svc.DefaultPrice()})
}

// GetPrice handles GET /stocks/{symbol}/price.
func (h *StockHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.GetPrice(chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuoteResponse(q))
}

// SetPrice handles PUT /stocks/{symbol}/price.
func (h *StockHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	price, err := req.Price.decimal("price")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	q, err := h.svc.SetPrice(chi.URLParam(r, "symbol"), price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuoteResponse(q))
}

func buildQuoteResponse(q *service.StockQuote) quoteResponse {
	return quoteResponse{Symbol: q.Symbol, Price: q.Price, Listed: q.Listed, Traded: q.Traded}
}
