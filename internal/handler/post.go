package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/service"
)

// PostHandler exposes posts and replies over HTTP.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type createPostRequest struct {
	UserID       int64    `json:"user_id"`
	Content      string   `json:"content"`
	MediaURLs    []string `json:"media_urls"`
	ParentPostID *int64   `json:"parent_post_id"`
}

// HandleCreate creates a post or, when parent_post_id is set, a reply.
//
// POST /api/posts
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), req.UserID, req.Content, req.MediaURLs, req.ParentPostID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleList returns top-level posts, newest first.
//
// GET /api/posts?limit=&offset=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListTopLevel(r.Context(), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGetByID returns one post.
//
// GET /api/posts/{id}
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleListByUser returns all of a user's posts, replies included.
//
// GET /api/users/{id}/posts
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleListReplies returns the direct replies of a post, newest first.
//
// GET /api/posts/{id}/replies
func (h *PostHandler) HandleListReplies(w http.ResponseWriter, r *http.Request) {
	parentID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	replies, err := h.posts.ListReplies(r.Context(), parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

// HandleUpdate applies a sparse update to content and pinned state.
//
// PATCH /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var upd model.PostUpdate
	if upd.Content, err = body.optString("content"); err != nil {
		writeError(w, err)
		return
	}
	if upd.IsPinned, err = body.optBool("is_pinned"); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post. Replies to it survive as orphans.
//
// DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
