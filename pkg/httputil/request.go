package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/storage"
)

// ParseJSON decodes JSON from the request body into the destination.
// Decoding failures are validation errors.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", apperrors.ErrValidation)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", apperrors.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON: %v", apperrors.ErrValidation, err)
	}
	return nil
}

// ParsePathInt64 extracts and parses an int64 path parameter.
// Routes constrain ids to digits, so a bad value means the row cannot exist.
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("%w: missing path parameter %s", apperrors.ErrNotFound, key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", apperrors.ErrNotFound, key, str)
	}
	return val, nil
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("%w: missing path parameter %s", apperrors.ErrNotFound, key)
	}
	return str, nil
}

// ParseQueryInt extracts and parses an integer query parameter.
// Failures are validation errors on the parameter name.
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, apperrors.NewValidationError(key, "A valid integer is required.")
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// ParsePage reads limit and offset query parameters
func ParsePage(r *http.Request) (storage.Page, error) {
	limit, err := ParseQueryInt(r, "limit", 0)
	if err != nil {
		return storage.Page{}, err
	}
	offset, err := ParseQueryInt(r, "offset", 0)
	if err != nil {
		return storage.Page{}, err
	}
	return storage.NewPage(limit, offset), nil
}
