package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
	Field string `json:"field,omitempty" example:"stream_name"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database, Redis and the task queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	targets := map[string]Pinger{"database": s.db, "redis": s.redisClient}
	if s.taskQueue != nil {
		targets["queue"] = s.taskQueue
	}

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string)}
	status := http.StatusOK
	for name, p := range targets {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Sync endpoints

// handleCreateSync godoc
// @Summary      Create sync
// @Description  Validates and stores a new sync. Scheduled syncs get their schedule workflow started.
// @Tags         Syncs
// @Accept       json
// @Produce      json
// @Param        request  body      driving.CreateSyncRequest  true  "Sync definition"
// @Success      201      {object}  domain.Sync
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      422      {object}  ErrorResponse  "Validation failed"
// @Router       /syncs [post]
func (s *Server) handleCreateSync(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sync, err := s.syncService.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sync)
}

// handleListSyncs godoc
// @Summary      List syncs
// @Tags         Syncs
// @Produce      json
// @Param        workspace_id  query  string  false  "Workspace filter"
// @Success      200  {array}  domain.Sync
// @Router       /syncs [get]
func (s *Server) handleListSyncs(w http.ResponseWriter, r *http.Request) {
	syncs, err := s.syncService.List(r.Context(), r.URL.Query().Get("workspace_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if syncs == nil {
		syncs = []*domain.Sync{}
	}
	writeJSON(w, http.StatusOK, syncs)
}

// handleGetSync godoc
// @Summary      Get sync
// @Tags         Syncs
// @Produce      json
// @Param        id   path      string  true  "Sync ID"
// @Success      200  {object}  domain.Sync
// @Failure      404  {object}  ErrorResponse
// @Router       /syncs/{id} [get]
func (s *Server) handleGetSync(w http.ResponseWriter, r *http.Request) {
	sync, err := s.syncService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sync)
}

// handleUpdateSync godoc
// @Summary      Update sync
// @Tags         Syncs
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Sync ID"
// @Param        request  body      driving.UpdateSyncRequest  true  "Fields to change"
// @Success      200      {object}  domain.Sync
// @Failure      404      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Router       /syncs/{id} [put]
func (s *Server) handleUpdateSync(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sync, err := s.syncService.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sync)
}

// handleDeleteSync godoc
// @Summary      Delete sync
// @Description  Soft-deletes the sync, discards its runs and terminates its workflow
// @Tags         Syncs
// @Param        id   path  string  true  "Sync ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /syncs/{id} [delete]
func (s *Server) handleDeleteSync(w http.ResponseWriter, r *http.Request) {
	if err := s.syncService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFireEvent godoc
// @Summary      Fire lifecycle event
// @Tags         Syncs
// @Produce      json
// @Param        id     path      string  true  "Sync ID"
// @Param        event  path      string  true  "complete, fail, disable or enable"
// @Success      200    {object}  domain.Sync
// @Failure      400    {object}  ErrorResponse  "Unknown event"
// @Failure      409    {object}  ErrorResponse  "Event not allowed from the current status"
// @Router       /syncs/{id}/events/{event} [post]
func (s *Server) handleFireEvent(w http.ResponseWriter, r *http.Request) {
	event := domain.SyncEvent(r.PathValue("event"))
	if !event.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown event: "+string(event))
		return
	}

	sync, err := s.syncService.Fire(r.Context(), r.PathValue("id"), event)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sync)
}

// handleTriggerRun godoc
// @Summary      Trigger a run
// @Description  Queues one run of the sync regardless of its schedule
// @Tags         Syncs
// @Produce      json
// @Param        id   path      string  true  "Sync ID"
// @Success      202  {object}  domain.Task
// @Router       /syncs/{id}/run [post]
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	task, err := s.syncService.TriggerRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// handleListRuns godoc
// @Summary      List runs
// @Tags         Syncs
// @Produce      json
// @Param        id     path   string  true   "Sync ID"
// @Param        limit  query  int     false  "Maximum runs returned"
// @Success      200    {array}  domain.SyncRun
// @Router       /syncs/{id}/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.syncService.ListRuns(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*domain.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetDescriptor godoc
// @Summary      Get execution descriptor
// @Tags         Syncs
// @Produce      json
// @Param        id   path      string  true  "Sync ID"
// @Success      200  {object}  domain.ExecutionDescriptor
// @Failure      404  {object}  ErrorResponse
// @Failure      410  {object}  ErrorResponse  "Sync is discarded"
// @Router       /syncs/{id}/descriptor [get]
func (s *Server) handleGetDescriptor(w http.ResponseWriter, r *http.Request) {
	descriptor, err := s.syncService.Descriptor(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, descriptor)
}

// Catalog endpoints

// handleReplaceCatalog godoc
// @Summary      Replace connector catalog
// @Tags         Catalogs
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Connector ID"
// @Param        request  body      driving.ReplaceCatalogRequest  true  "Catalog document"
// @Success      200      {object}  domain.Catalog
// @Failure      422      {object}  ErrorResponse
// @Router       /connectors/{id}/catalog [put]
func (s *Server) handleReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	var req driving.ReplaceCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	catalog, err := s.catalogService.Replace(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// handleGetCatalog godoc
// @Summary      Get connector catalog
// @Tags         Catalogs
// @Produce      json
// @Param        id   path      string  true  "Connector ID"
// @Success      200  {object}  domain.Catalog
// @Failure      404  {object}  ErrorResponse
// @Router       /connectors/{id}/catalog [get]
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalogService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// handleGetStream godoc
// @Summary      Resolve a stream
// @Tags         Catalogs
// @Produce      json
// @Param        id    path      string  true  "Connector ID"
// @Param        name  path      string  true  "Stream name (exact, case-sensitive)"
// @Success      200   {object}  domain.Stream
// @Failure      404   {object}  ErrorResponse
// @Router       /connectors/{id}/catalog/streams/{name} [get]
func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	stream, ok, err := s.catalogService.FindStream(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrStreamNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

// handleQueueStats godoc
// @Summary      Task queue statistics
// @Tags         Queue
// @Produce      json
// @Router       /queue/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeServiceError maps domain errors onto status codes
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: validationErr.Field})
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSyncDiscarded):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCatalogMissing), errors.Is(err, domain.ErrStreamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
