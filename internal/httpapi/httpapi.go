package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"resaletracker/backend/internal/service"
	"resaletracker/backend/internal/store"
)

// StatusReporter exposes the persistence health shown on /healthz.
type StatusReporter interface {
	Status() store.Status
}

// API is the HTTP caller of the service. The managers behind it hold
// plain slices, so mu serializes requests: reads share it, anything that
// may mutate or switch stores holds it alone.
type API struct {
	mu            sync.RWMutex
	service       *service.Service
	sync          StatusReporter
	allowedOrigin string
	logger        *zap.Logger
	location      *time.Location
}

func New(svc *service.Service, sync StatusReporter, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		sync:          sync,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		location:      time.Local,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/stores", a.handleStores)
	mux.HandleFunc("/api/v1/stores/", a.handleStoreActions)

	mux.HandleFunc("/api/v1/categories", a.handleCategories)
	mux.HandleFunc("/api/v1/categories/", a.handleCategoryActions)
	mux.HandleFunc("/api/v1/listings", a.handleListings)
	mux.HandleFunc("/api/v1/listings/summary", a.handleListingSummary)
	mux.HandleFunc("/api/v1/listings/", a.handleListingActions)

	mux.HandleFunc("/api/v1/periods", a.handlePeriods)
	mux.HandleFunc("/api/v1/periods/current", a.handleCurrentPeriod)
	mux.HandleFunc("/api/v1/periods/", a.handlePeriodActions)
	mux.HandleFunc("/api/v1/sold-categories/", a.handleSoldCategoryActions)
	mux.HandleFunc("/api/v1/subcategories/", a.handleSubcategoryActions)
	mux.HandleFunc("/api/v1/records/", a.handleRecordActions)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	body := map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	}
	if current, ok := a.service.CurrentStore(); ok {
		body["store"] = current
	}
	if a.sync != nil {
		status := a.sync.Status()
		body["sync"] = status
		body["degraded"] = status.RemoteConfigured && !status.RemoteHealthy
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleStores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, _ := a.service.CurrentStore()
		writeJSON(w, http.StatusOK, map[string]any{"stores": a.service.Stores(), "current_store_id": current.ID})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := a.service.CreateStore(r.Context(), req.Name)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"store": created})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStoreActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/stores/", "store id required")
	if !ok {
		return
	}

	switch {
	case action == "switch" && r.Method == http.MethodPost:
		current, err := a.service.SwitchStore(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"store": current})
	case action == "" && r.Method == http.MethodDelete:
		if err := a.service.RemoveStore(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

// degradedWriter flags responses written while the remote backend is
// unreachable, so callers learn a save landed in the local cache only.
type degradedWriter struct {
	http.ResponseWriter
	sync        StatusReporter
	wroteHeader bool
}

func (d *degradedWriter) WriteHeader(status int) {
	if d.wroteHeader {
		return
	}
	d.wroteHeader = true
	if d.sync != nil {
		if s := d.sync.Status(); s.RemoteConfigured && !s.RemoteHealthy {
			d.Header().Set("X-Sync-Degraded", "true")
		}
	}
	d.ResponseWriter.WriteHeader(status)
}

func (d *degradedWriter) Write(b []byte) (int, error) {
	if !d.wroteHeader {
		d.WriteHeader(http.StatusOK)
	}
	return d.ResponseWriter.Write(b)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "X-Sync-Degraded")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		a.serveLocked(next, &degradedWriter{ResponseWriter: w, sync: a.sync}, r)
		a.logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("took", time.Since(startedAt)))
	})
}

func (a *API) serveLocked(next http.Handler, w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.mu.RLock()
		defer a.mu.RUnlock()
	} else {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	next.ServeHTTP(w, r)
}

// splitAction parses "<prefix><id>[/<action>]".
func splitAction(w http.ResponseWriter, r *http.Request, prefix string, missing string) (string, string, bool) {
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusBadRequest, errors.New("invalid path"))
		return "", "", false
	}
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, action, _ := strings.Cut(tail, "/")
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New(missing))
		return "", "", false
	}
	return id, strings.Trim(action, "/"), true
}

// parseDate accepts any layout dateparse understands. Empty input is the
// zero time and left to domain validation.
func (a *API) parseDate(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseIn(raw, a.location)
	if err != nil {
		return time.Time{}, store.Invalid("%s %q is not a date", field, raw)
	}
	return t, nil
}

func confirmed(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("confirm"), "true")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrPossibleDuplicate), errors.Is(err, store.ErrAlreadyRecorded):
		return http.StatusConflict
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, store.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var dup *store.DuplicateError
	if errors.As(err, &dup) {
		writeJSON(w, status, map[string]any{
			"error":            err.Error(),
			"existing_id":      dup.ExistingID,
			"confirm_required": true,
		})
		return
	}
	if status >= 500 && status != http.StatusInsufficientStorage {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message, except a full local cache, whose
	// size diagnostics the caller needs.
	msg := err.Error()
	if status >= 500 && status != http.StatusInsufficientStorage {
		msg = "internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "storage backend unavailable"
		}
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
