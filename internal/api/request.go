package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// DefaultUserID is the identity assumed when a request carries no user_id.
// Identity is delegated to the caller (gateway or trusted client); row
// scoping on user_id is the enforcement.
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

// userIDFromQuery resolves the caller identity from the user_id query
// parameter, falling back to DefaultUserID when absent.
func userIDFromQuery(r *http.Request) (uuid.UUID, error) {
	return parseUserID(r.URL.Query().Get("user_id"))
}

// parseUserID parses a user_id value, applying the default when empty.
func parseUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		raw = DefaultUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id: %w", err)
	}
	return id, nil
}

// pathUUID parses the named path wildcard as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
