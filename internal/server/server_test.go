package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/server"
)

// newTestServer builds a full server against an in-memory database, so
// these tests cover routing, handlers, services, and the sqlite layer
// end to end.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{
		DBPath:    ":memory:",
		JWTSecret: "test-secret-0123456789abcdef",
	}, logger)
	require.NoError(t, err)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func createUser(t *testing.T, h http.Handler, username string) model.User {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/users", map[string]any{
		"username": username,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.User](t, rec)
}

func createListing(t *testing.T, h http.Handler, userID int64, title string, price float64) model.Listing {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/listings", map[string]any{
		"user_id":   userID,
		"title":     title,
		"price":     price,
		"currency":  "USD",
		"condition": "good",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Listing](t, rec)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUserEndpoints(t *testing.T) {
	h := newTestServer(t)

	user := createUser(t, h, "alice")
	assert.NotZero(t, user.ID)

	t.Run("duplicate username conflicts", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/users", map[string]any{
			"username": "alice",
			"email":    "other@example.com",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode[errorBody](t, rec).Error)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(`{"username":`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", decode[model.User](t, rec).Username)
	})

	t.Run("get unknown id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/9999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get by username any casing", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/username/ALICE", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", decode[model.User](t, rec).Username)
	})

	t.Run("sparse update leaves absent fields alone", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/users/%d", user.ID), map[string]any{
			"bio": "hello",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decode[model.User](t, rec)
		assert.Equal(t, "hello", updated.Bio)
		assert.Equal(t, user.DisplayName, updated.DisplayName)
	})

	t.Run("explicit null clears a field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/users/%d", user.ID),
			bytes.NewBufferString(`{"bio": null}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[model.User](t, rec).Bio)
	})
}

func TestPostAndLikeEndpoints(t *testing.T) {
	h := newTestServer(t)
	author := createUser(t, h, "author")
	fan := createUser(t, h, "fan")

	rec := doJSON(t, h, http.MethodPost, "/api/posts", map[string]any{
		"user_id": author.ID,
		"content": "hello world",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[model.Post](t, rec)

	t.Run("empty content rejected", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/posts", map[string]any{
			"user_id": author.ID,
			"content": "   ",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "content", body.Field)
	})

	t.Run("like and unlike", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/posts/%d/likes", post.ID), map[string]any{
			"user_id": fan.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// Duplicate like conflicts.
		rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/posts/%d/likes", post.ID), map[string]any{
			"user_id": fan.ID,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		// The post shows the like count.
		rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[model.Post](t, rec).LikeCount)

		rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/posts/%d/likes/%d", post.ID, fan.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("replies", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/posts", map[string]any{
			"user_id":        fan.ID,
			"content":        "a reply",
			"parent_post_id": post.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/posts/%d/replies", post.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		replies := decode[[]model.Post](t, rec)
		assert.Len(t, replies, 1)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFollowEndpoints(t *testing.T) {
	h := newTestServer(t)
	alice := createUser(t, h, "alice")
	bob := createUser(t, h, "bob")

	rec := doJSON(t, h, http.MethodPost, "/api/follows", map[string]any{
		"follower_id":  alice.ID,
		"following_id": bob.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("self follow maps to 400", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/follows", map[string]any{
			"follower_id":  alice.ID,
			"following_id": alice.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "self_reference", decode[errorBody](t, rec).Error)
	})

	t.Run("followers list", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/followers", bob.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		followers := decode[[]model.User](t, rec)
		require.Len(t, followers, 1)
		assert.Equal(t, alice.ID, followers[0].ID)
	})

	t.Run("unfollow", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/follows/%d/%d", alice.ID, bob.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/follows/%d/%d", alice.ID, bob.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListingEndpoints(t *testing.T) {
	h := newTestServer(t)
	seller := createUser(t, h, "seller")
	listing := createListing(t, h, seller.ID, "Vintage Camera", 120)

	t.Run("get counts views", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/listings/%d", listing.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[model.Listing](t, rec).ViewCount)

		rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/listings/%d", listing.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(2), decode[model.Listing](t, rec).ViewCount)
	})

	t.Run("search", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/listings/search?q=camera", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Listing](t, rec), 1)
	})

	t.Run("deactivate hides from search", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/listings/%d", listing.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/api/listings/search?q=camera", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]model.Listing](t, rec))
	})
}

func TestTransactionEndpoints(t *testing.T) {
	h := newTestServer(t)
	seller := createUser(t, h, "seller")
	buyer := createUser(t, h, "buyer")
	listing := createListing(t, h, seller.ID, "Desk chair", 80)

	create := func() *httptest.ResponseRecorder {
		return doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
			"listing_id": listing.ID,
			"buyer_id":   buyer.ID,
			"seller_id":  seller.ID,
			"amount":     80.0,
			"currency":   "USD",
		})
	}

	rec := create()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	txn := decode[model.Transaction](t, rec)
	assert.Equal(t, "pending", txn.Status)
	assert.NotEmpty(t, txn.Reference)

	t.Run("retry returns the same transaction", func(t *testing.T) {
		rec := create()
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, txn.ID, decode[model.Transaction](t, rec).ID)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
			"listing_id": listing.ID,
			"buyer_id":   buyer.ID,
			"seller_id":  seller.ID,
			"amount":     10.0,
			"currency":   "USD",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "amount", decode[errorBody](t, rec).Field)
	})

	t.Run("buyer is seller", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
			"listing_id": listing.ID,
			"buyer_id":   seller.ID,
			"seller_id":  seller.ID,
			"amount":     80.0,
			"currency":   "USD",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_operation", decode[errorBody](t, rec).Error)
	})

	t.Run("status update", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/transactions/%d/status", txn.ID), map[string]any{
			"status": "completed",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "completed", decode[model.Transaction](t, rec).Status)
	})

	t.Run("inactive listing blocks new transactions", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/listings/%d", listing.ID), nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = create()
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_state", decode[errorBody](t, rec).Error)
	})

	t.Run("transactions listed for buyer and seller", func(t *testing.T) {
		for _, id := range []int64{buyer.ID, seller.ID} {
			rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/transactions", id), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]model.Transaction](t, rec), 1)
		}
	})
}

func TestNotificationEndpoints(t *testing.T) {
	h := newTestServer(t)
	user := createUser(t, h, "recipient")

	rec := doJSON(t, h, http.MethodPost, "/api/notifications", map[string]any{
		"user_id": user.ID,
		"type":    "like",
		"title":   "New like",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	n := decode[model.Notification](t, rec)

	t.Run("invalid type", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/notifications", map[string]any{
			"user_id": user.ID,
			"type":    "poke",
			"title":   "hm",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unread count", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/notifications/unread_count", user.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"unread_count":1}`, rec.Body.String())
	})

	t.Run("mark read", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", n.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"read":true}`, rec.Body.String())

		// Unknown id: read=false, not a 404.
		rec = doJSON(t, h, http.MethodPost, "/api/notifications/9999/read", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"read":false}`, rec.Body.String())
	})

	t.Run("mark all read", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/users/%d/notifications/read_all", user.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAuthEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tokenCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie, "register did not set the token cookie")
	assert.True(t, tokenCookie.HttpOnly)

	t.Run("me with cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(tokenCookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", decode[model.User](t, rec).Username)
	})

	t.Run("me without token", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
			"password": "s3cret-password",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("login failures are uniform", func(t *testing.T) {
		for _, body := range []map[string]any{
			{"username": "alice", "password": "wrong-password"},
			{"username": "ghost", "password": "whatever"},
		} {
			rec := doJSON(t, h, http.MethodPost, "/api/auth/login", body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "invalid username or password", decode[errorBody](t, rec).Message)
		}
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/logout", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var cleared *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "token" {
				cleared = c
			}
		}
		require.NotNil(t, cleared)
		assert.Negative(t, cleared.MaxAge)
	})
}

func TestAuthRoutesDisabledWithoutSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{DBPath: ":memory:"}, logger)
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret-password",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
