package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"bankhook/internal/audit"
	"bankhook/internal/gate"
	"bankhook/internal/ports"
	"bankhook/internal/process"
	"bankhook/internal/types"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Handler wires the admission pipeline: rate limiter, network filter,
// signature verifier, then the batch processor. Gates may short-circuit
// with a terminal envelope; every webhook response leaves at HTTP 200
// with the error carried in-band.
type Handler struct {
	Filter    *gate.NetFilter
	Limiter   *gate.Limiter
	Verifier  *gate.Verifier
	Processor *process.Processor
	Dedup     ports.DedupStore
	Trail     *audit.Trail
}

func NewHandler(filter *gate.NetFilter, limiter *gate.Limiter, verifier *gate.Verifier,
	processor *process.Processor, dedup ports.DedupStore, trail *audit.Trail) *Handler {
	return &Handler{
		Filter:    filter,
		Limiter:   limiter,
		Verifier:  verifier,
		Processor: processor,
		Dedup:     dedup,
		Trail:     trail,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/bank-notification", h.handleNotification)
	mux.HandleFunc("/admin/processed-transactions/stats", h.handleDedupStats)
	mux.HandleFunc("/admin/processed-transactions/cleanup", h.handleDedupCleanup)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	return withRequestLog(mux)
}

func (h *Handler) handleNotification(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("unexpected fault in webhook pipeline")
			h.writeEnvelope(w, types.Reject("", types.CodeInternalError, "Internal server error"))
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	caller := gate.CallerID(r)

	// Rate limit first; accounting headers go out on every response,
	// allowed or not.
	decision := h.Limiter.Check(ctx, caller)
	setRateHeaders(w, decision)
	if !decision.Allowed {
		log.WithFields(log.Fields{"caller": caller, "count": decision.Count}).
			Warn("rate limit exceeded")
		h.writeEnvelope(w, types.Reject("", types.CodeRateLimited, "Rate limit exceeded"))
		return
	}

	if !h.Filter.Admit(caller) {
		log.WithField("caller", caller).Warn("caller outside trusted networks")
		h.writeEnvelope(w, types.Reject("", types.CodeForbidden, "IP address not allowed"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeEnvelope(w, types.Reject("", types.CodeBadRequest, "Failed to read request body"))
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if len(body) == 0 {
		h.writeEnvelope(w, types.Reject("", types.CodeBadRequest, "Empty request body"))
		return
	}

	// The decoded struct is used for processing; body keeps the exact
	// signed bytes for audit so nothing downstream re-serializes.
	var batch types.NotificationBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		h.writeEnvelope(w, types.Reject("", types.CodeBadRequest, "Invalid JSON format"))
		return
	}

	if batch.Signature == "" {
		h.writeEnvelope(w, types.Reject(batch.BatchID, types.CodeUnauthorized, "Missing signature"))
		return
	}
	if !h.Verifier.Verify(batch.SourceAppID, batch.BatchID, batch.Timestamp, batch.Signature) {
		log.WithField("batch_id", batch.BatchID).Warn("signature verification failed")
		h.writeEnvelope(w, types.Reject(batch.BatchID, types.CodeUnauthorized, "Signature is not valid"))
		return
	}

	if h.Trail != nil {
		h.Trail.Record(ctx, batch.BatchID, batch.SourceAppID, batch.Timestamp, body)
	}

	result := h.Processor.ProcessBatch(ctx, batch)
	h.writeEnvelope(w, process.Compose(batch.BatchID, result))
}

func (h *Handler) handleDedupStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.adminAdmit(w, r) {
		return
	}
	stats, err := h.Dedup.Stats(r.Context())
	if err != nil {
		log.WithError(err).Error("dedup stats failed")
		_ = writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"stats":      stats,
			"cache_size": h.Processor.CacheSize(),
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleDedupCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.adminAdmit(w, r) {
		return
	}
	days := 30
	if v := r.URL.Query().Get("days_to_keep"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			_ = writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false, "message": "days_to_keep must be >= 1",
			})
			return
		}
		days = n
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := h.Dedup.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		log.WithError(err).Error("dedup cleanup failed")
		_ = writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Cleaned up %d transactions older than %d days", removed, days),
	})
}

// adminAdmit applies the network filter to admin endpoints. They carry
// no signature, so the trusted network set is the only gate.
func (h *Handler) adminAdmit(w http.ResponseWriter, r *http.Request) bool {
	caller := gate.CallerID(r)
	if !h.Filter.Admit(caller) {
		_ = writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "message": "forbidden"})
		return false
	}
	return true
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, env types.Envelope) {
	// The counterparty contract: error signaling is entirely in-band.
	if err := writeJSON(w, http.StatusOK, env); err != nil {
		log.WithError(err).Error("failed to write response envelope")
	}
}

func setRateHeaders(w http.ResponseWriter, d gate.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining(), 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt, 10))
	w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(d.Window/time.Second)))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// withRequestLog logs every request with its duration and stamps the
// X-Process-Time header.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggedWriter{ResponseWriter: w, status: http.StatusOK, start: start}
		next.ServeHTTP(lw, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"caller":   gate.CallerID(r),
			"status":   lw.status,
			"duration": time.Since(start).String(),
		}).Info("request processed")
	})
}

type loggedWriter struct {
	http.ResponseWriter
	status      int
	start       time.Time
	wroteHeader bool
}

func (lw *loggedWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.Header().Set("X-Process-Time", time.Since(lw.start).String())
		lw.wroteHeader = true
	}
	lw.status = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggedWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}
	return lw.ResponseWriter.Write(b)
}
