package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"getricher/internal/budget"
	"getricher/internal/log"
	"getricher/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	}).Write(w)
}

// handleReady reports which optional integrations are wired
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.engine == nil {
		checks["pagination"] = "failed: no session"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["pagination"] = string(s.engine.State().Phase())
	}

	if s.tokens != nil {
		if _, ok := s.tokens.GetToken(); ok {
			checks["api_token"] = "ok"
		} else {
			checks["api_token"] = "missing"
		}
	}

	checks["snapshots"] = enabled(s.snapshots != nil)
	checks["refresh_queue"] = enabled(s.publisher != nil)
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Payload(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	state := s.engine.State()

	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP transactions_loaded Transactions accumulated in the current session\n")
	fmt.Fprintf(w, "# TYPE transactions_loaded gauge\n")
	fmt.Fprintf(w, "transactions_loaded %d\n\n", state.Count())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", s.rateLimiter.Hits())

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", s.securityDetector.SuspiciousCount())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", s.now().Sub(s.started).Seconds())
}

// handleFetch starts a fresh fetch, discarding the accumulated results.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeQueryRequest(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	q, err := req.Resolve(s.defaultFilter, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	s.engine.FetchTransactions(r.Context(), q)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Fresh fetch requested",
		log.FieldQueryKey, q.Key(),
		log.FieldOperation, log.OpFetch)

	NewJSONResponse().Status(http.StatusAccepted).Payload(newStateResponse(s.engine.State())).Write(w)
}

// handleLoadMore requests the next page of the current session. It answers
// 409 when no page can be requested right now.
func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	started := s.engine.LoadMore(r.Context(), s.engine.Query())
	status := http.StatusAccepted
	if !started {
		status = http.StatusConflict
	}
	NewJSONResponse().Status(status).Payload(newStateResponse(s.engine.State())).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(newStateResponse(s.engine.State())).Write(w)
}

// handleCachedTransactions serves the stored snapshot for the query in the
// URL, without touching the live session.
func (s *Server) handleCachedTransactions(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		NotFoundError("snapshot storage is disabled").Write(w)
		return
	}

	req, err := QueryRequestFromValues(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	q, err := req.Resolve(s.defaultFilter, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	snap, err := s.snapshots.LoadTransactionSnapshot(r.Context(), q.Key())
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		NotFoundError("no snapshot stored for " + q.Key()).Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load snapshot",
			log.FieldQueryKey, q.Key(),
			log.FieldError, err)
		InternalServerError("failed to load snapshot").Write(w)
		return
	}

	NewJSONResponse().Payload(newSnapshotResponse(snap, q)).Write(w)
}

// handleVendors aggregates the transactions accumulated so far.
func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(newVendorsResponse(s.engine.State())).Write(w)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.FetchAccounts(r.Context())
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Account fetch failed", log.FieldError, err)
		ErrorResponse(statusForFetchError(err), budget.UserMessage(err)).Write(w)
		return
	}
	NewJSONResponse().Payload(accountsResponse{Accounts: accounts}).Write(w)
}

// handleRefresh queues a background refresh for the worker.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		ServiceUnavailableError("refresh queue is not configured").Write(w)
		return
	}

	req, err := DecodeQueryRequest(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	msg, err := req.RefreshMessage(s.defaultFilter, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.publisher.PublishRefreshRequest(r.Context(), msg); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to publish refresh request",
			log.FieldRequestID, msg.RequestID,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "failed to queue refresh").Write(w)
		return
	}

	NewJSONResponse().Status(http.StatusAccepted).Payload(map[string]string{
		"request_id": msg.RequestID,
	}).Write(w)
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	configured := false
	if s.tokens != nil {
		_, configured = s.tokens.GetToken()
	}
	NewJSONResponse().Payload(map[string]bool{
		"configured": configured,
		"writable":   s.tokenWriter != nil,
	}).Write(w)
}

func (s *Server) handleSaveToken(w http.ResponseWriter, r *http.Request) {
	if s.tokenWriter == nil {
		ErrorResponse(http.StatusNotImplemented, "this backend does not store tokens").Write(w)
		return
	}

	var req TokenRequest
	if err := decodeJSONBody(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		BadRequestError("token must not be empty").Write(w)
		return
	}

	if err := s.tokenWriter.SaveToken(token); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save API token", log.FieldError, err)
		InternalServerError("failed to save token").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "API token saved")
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if s.tokenWriter == nil {
		ErrorResponse(http.StatusNotImplemented, "this backend does not store tokens").Write(w)
		return
	}
	if err := s.tokenWriter.DeleteToken(); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete API token", log.FieldError, err)
		InternalServerError("failed to delete token").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "API token deleted")
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
