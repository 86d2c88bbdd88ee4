package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"kas/internal/auth"
	"kas/internal/core"
)

// withAuth checks the bearer token and grants the treasurer capability. The
// acting treasurer's name comes from X-Actor, defaulting to "treasurer".
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || s.apiToken == "" || token != s.apiToken {
			writeError(w, r, core.ErrForbidden)
			return
		}

		actor := strings.TrimSpace(r.Header.Get("X-Actor"))
		if actor == "" {
			actor = "treasurer"
		}

		// The public feed may be stale after any mutation.
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			s.feedCache.Purge()
		}

		next(w, r.WithContext(auth.WithTreasurer(r.Context(), actor)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrState):
		status = http.StatusConflict
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidDay):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.Validationf("invalid request body: %v", err)
	}
	return nil
}

// pathID parses the named path segment as an id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, core.Validationf("invalid %s %q", name, r.PathValue(name))
	}
	return id, nil
}

// queryDay parses an optional ?date=YYYY-MM-DD filter; nil means no filter.
func queryDay(r *http.Request) (*core.Day, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return nil, nil
	}
	d, err := core.ParseDay(raw)
	if err != nil {
		return nil, core.Validationf("invalid date %q", raw)
	}
	return &d, nil
}

// dayOrToday parses an optional ?date= filter, falling back to the current
// calendar day in the server's configured timezone.
func (s *Server) dayOrToday(r *http.Request) (core.Day, error) {
	d, err := queryDay(r)
	if err != nil {
		return core.Day{}, err
	}
	if d == nil {
		return core.Today(s.tz), nil
	}
	return *d, nil
}

func queryYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 {
		return 0, core.Validationf("invalid year %q", raw)
	}
	return year, nil
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
