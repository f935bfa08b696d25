package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/service"
)

// LikeHandler exposes post likes over HTTP.
type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

type createLikeRequest struct {
	UserID int64 `json:"user_id"`
}

// HandleCreate likes a post on behalf of user_id.
//
// POST /api/posts/{id}/likes
func (h *LikeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req createLikeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	like, err := h.likes.Create(r.Context(), req.UserID, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, like)
}

// HandleDelete removes a user's like from a post.
//
// DELETE /api/posts/{id}/likes/{userID}
func (h *LikeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.likes.Delete(r.Context(), userID, postID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
