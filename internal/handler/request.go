package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/appdotbuilder/amancores/internal/apperror"
)

// idParam extracts a positive int64 URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// sparseBody is a decoded update payload that preserves key presence.
// Plain pointer-field structs cannot distinguish an absent key from an
// explicit null, and the two mean different things here: absent leaves
// the stored value alone, null clears it.
type sparseBody map[string]json.RawMessage

func decodeSparse(r *http.Request) (sparseBody, error) {
	var body sparseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, apperror.ValidationFailed("body", "invalid JSON body")
	}
	return body, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// optString returns nil when the key is absent, a pointer to "" for an
// explicit null, and a pointer to the value otherwise.
func (b sparseBody) optString(key string) (*string, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		s := ""
		return &s, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be a string")
	}
	return &s, nil
}

func (b sparseBody) optBool(key string) (*bool, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		v := false
		return &v, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be a boolean")
	}
	return &v, nil
}

func (b sparseBody) optFloat(key string) (*float64, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		v := 0.0
		return &v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be a number")
	}
	return &v, nil
}

func (b sparseBody) optStringSlice(key string) (*[]string, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		v := []string{}
		return &v, nil
	}
	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be an array of strings")
	}
	return &v, nil
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryFloatPtr reads an optional float query parameter; nil when absent
// or malformed.
func queryFloatPtr(r *http.Request, name string) *float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// queryStringPtr reads an optional string query parameter; nil when
// absent.
func queryStringPtr(r *http.Request, name string) *string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	return &raw
}

// queryBoolPtr reads an optional boolean query parameter; nil when
// absent or malformed.
func queryBoolPtr(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
