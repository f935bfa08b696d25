package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
	"github.com/appdotbuilder/amancores/internal/service"
)

// ListingHandler exposes marketplace listings over HTTP.
type ListingHandler struct {
	listings *service.ListingService
	logger   *slog.Logger
}

func NewListingHandler(listings *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, logger: logger}
}

type createListingRequest struct {
	UserID      int64    `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	MediaURLs   []string `json:"media_urls"`
}

// HandleCreate creates a listing.
//
// POST /api/listings
func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.listings.Create(r.Context(), service.CreateListingInput{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
		MediaURLs:   req.MediaURLs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

// listingFilterFromQuery assembles the shared filter set used by the
// list, per-user list, and search endpoints.
func listingFilterFromQuery(r *http.Request) repository.ListingFilter {
	return repository.ListingFilter{
		Category:  queryStringPtr(r, "category"),
		Location:  queryStringPtr(r, "location"),
		MinPrice:  queryFloatPtr(r, "min_price"),
		MaxPrice:  queryFloatPtr(r, "max_price"),
		Condition: queryStringPtr(r, "condition"),
		IsActive:  queryBoolPtr(r, "is_active"),
		Limit:     queryInt(r, "limit", 0),
		Offset:    queryInt(r, "offset", 0),
	}
}

// HandleList returns listings matching the query filters, newest first.
//
// GET /api/listings?category=&location=&min_price=&max_price=&condition=&is_active=&limit=&offset=
func (h *ListingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context(), listingFilterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleSearch returns active listings whose title or description
// contains the query, combined with the usual filters.
//
// GET /api/listings/search?q=
func (h *ListingHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.Search(r.Context(), r.URL.Query().Get("q"), listingFilterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleGetByID returns one listing. The read increments its view count;
// the response carries the incremented value.
//
// GET /api/listings/{id}
func (h *ListingHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// HandleListByUser returns a seller's listings.
//
// GET /api/users/{id}/listings
func (h *ListingHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	listings, err := h.listings.ListByUser(r.Context(), userID, listingFilterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleUpdate applies a sparse listing update.
//
// PATCH /api/listings/{id}
func (h *ListingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := decodeSparse(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var upd model.ListingUpdate
	if upd.Title, err = body.optString("title"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Description, err = body.optString("description"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Price, err = body.optFloat("price"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Currency, err = body.optString("currency"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Category, err = body.optString("category"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Condition, err = body.optString("condition"); err != nil {
		writeError(w, err)
		return
	}
	if upd.Location, err = body.optString("location"); err != nil {
		writeError(w, err)
		return
	}
	if upd.MediaURLs, err = body.optStringSlice("media_urls"); err != nil {
		writeError(w, err)
		return
	}
	if upd.IsActive, err = body.optBool("is_active"); err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.listings.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// HandleDeactivate soft-deletes a listing by marking it inactive.
// Idempotent.
//
// DELETE /api/listings/{id}
func (h *ListingHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.listings.Deactivate(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
