package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/service"
)

// FollowHandler exposes the follow graph over HTTP.
type FollowHandler struct {
	follows *service.FollowService
	logger  *slog.Logger
}

func NewFollowHandler(follows *service.FollowService, logger *slog.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, logger: logger}
}

type createFollowRequest struct {
	FollowerID  int64 `json:"follower_id"`
	FollowingID int64 `json:"following_id"`
}

// HandleCreate creates a follow edge.
//
// POST /api/follows
func (h *FollowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFollowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	follow, err := h.follows.Create(r.Context(), req.FollowerID, req.FollowingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, follow)
}

// HandleDelete removes a follow edge.
//
// DELETE /api/follows/{followerID}/{followingID}
func (h *FollowHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	followerID, err := idParam(r, "followerID")
	if err != nil {
		writeError(w, err)
		return
	}
	followingID, err := idParam(r, "followingID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.follows.Delete(r.Context(), followerID, followingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet returns the directed edge for the ordered pair, or null when
// it does not exist. The response distinguishes "not following" from an
// error, so absence is a 200 with a null body, not a 404.
//
// GET /api/follows/{followerID}/{followingID}
func (h *FollowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	followerID, err := idParam(r, "followerID")
	if err != nil {
		writeError(w, err)
		return
	}
	followingID, err := idParam(r, "followingID")
	if err != nil {
		writeError(w, err)
		return
	}

	follow, err := h.follows.Get(r.Context(), followerID, followingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, follow)
}

// HandleListFollowers returns the users following {id}.
//
// GET /api/users/{id}/followers
func (h *FollowHandler) HandleListFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.follows.Followers(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleListFollowing returns the users {id} follows.
//
// GET /api/users/{id}/following
func (h *FollowHandler) HandleListFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.follows.Following(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
