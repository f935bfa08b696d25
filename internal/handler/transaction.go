package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/service"
)

// TransactionHandler exposes purchase transactions over HTTP.
type TransactionHandler struct {
	transactions *service.TransactionService
	logger       *slog.Logger
}

func NewTransactionHandler(transactions *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

type createTransactionRequest struct {
	ListingID     int64   `json:"listing_id"`
	BuyerID       int64   `json:"buyer_id"`
	SellerID      int64   `json:"seller_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
}

// HandleCreate records a purchase. Retrying while a pending transaction
// exists for the same listing and buyer returns that transaction instead
// of creating a duplicate.
//
// POST /api/transactions
func (h *TransactionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.transactions.Create(r.Context(),
		req.ListingID, req.BuyerID, req.SellerID, req.Amount, req.Currency, req.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// HandleGetByID returns one transaction.
//
// GET /api/transactions/{id}
func (h *TransactionHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.transactions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleListByUser returns the transactions where the user is buyer or
// seller.
//
// GET /api/users/{id}/transactions
func (h *TransactionHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	txns, err := h.transactions.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// HandleListByListing returns a listing's transactions.
//
// GET /api/listings/{id}/transactions
func (h *TransactionHandler) HandleListByListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	txns, err := h.transactions.ListByListing(r.Context(), listingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

type updateTransactionStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus sets a transaction's status.
//
// PATCH /api/transactions/{id}/status
func (h *TransactionHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateTransactionStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.transactions.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}
