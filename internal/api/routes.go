package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/queue"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/healthz", healthHandler(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", statusHandler(cfg))
		r.Get("/queue", listQueueHandler(cfg))
		r.Post("/queue", enqueueHandler(cfg))
		r.Get("/queue/{id}", getItemHandler(cfg))
		r.Post("/queue/{id}/retry", retryItemHandler(cfg))
		r.Delete("/queue/{id}", removeItemHandler(cfg))
		r.Get("/logs", logsHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := cfg.Workflow.Status(r.Context())

		resp := StatusResponse{
			Running:   summary.Running,
			LastError: summary.LastError,
			Queue:     make(map[string]int, len(summary.QueueStats)),
		}
		for status, count := range summary.QueueStats {
			resp.Queue[string(status)] = count
		}

		names := make([]string, 0, len(summary.StageHealth))
		for name := range summary.StageHealth {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			health := summary.StageHealth[name]
			resp.Stages = append(resp.Stages, StageHealthResponse{
				Name:   health.Name,
				Ready:  health.Ready,
				Detail: health.Detail,
			})
		}

		if summary.LastItem != nil {
			item := ItemToResponse(summary.LastItem)
			resp.ActiveItem = &item
		}

		if cfg.Scheduler != nil {
			for _, run := range cfg.Scheduler.NextRuns() {
				schedule := ScheduleResponse{Name: run.Name, Cron: run.Spec}
				if !run.Next.IsZero() {
					schedule.Next = run.Next.Format(time.RFC3339)
				}
				resp.ScheduledAt = append(resp.ScheduledAt, schedule)
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statuses []queue.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, ok := queue.ParseStatus(raw)
			if !ok {
				WriteError(w, http.StatusBadRequest, "unknown status "+raw, "BAD_REQUEST")
				return
			}
			statuses = append(statuses, status)
		}

		items, err := cfg.Store.List(r.Context(), statuses...)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list queue", "INTERNAL_ERROR")
			return
		}

		resp := ItemsResponse{Items: make([]ItemResponse, len(items))}
		for i, item := range items {
			resp.Items[i] = ItemToResponse(item)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func enqueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.MaxClips < 0 {
			WriteError(w, http.StatusBadRequest, "max_clips must not be negative", "BAD_REQUEST")
			return
		}

		item, err := cfg.Store.NewItem(r.Context(), queue.NewItemRequest{
			SourceDir:  req.SourceDir,
			MaxClips:   req.MaxClips,
			OutputPath: req.OutputPath,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to enqueue run", "INTERNAL_ERROR")
			return
		}

		if cfg.Notifier != nil {
			if err := cfg.Notifier.NotifyJobQueued(r.Context(), item.Label()); err != nil {
				cfg.Logger.Debug("queue notification failed", "error", err)
			}
		}

		WriteJSON(w, http.StatusCreated, ItemToResponse(item))
	}
}

func getItemHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := lookupItem(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ItemToResponse(item))
	}
}

func retryItemHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := lookupItem(w, r, cfg)
		if !ok {
			return
		}
		if item.Status != queue.StatusFailed {
			WriteError(w, http.StatusConflict, "only failed items can be retried", "CONFLICT")
			return
		}

		retried, err := cfg.Store.RetryFailed(r.Context(), item.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to retry item", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RetryResponse{Retried: retried})
	}
}

func removeItemHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := lookupItem(w, r, cfg)
		if !ok {
			return
		}
		if item.IsProcessing() {
			WriteError(w, http.StatusConflict, "item is processing; stop the run first", "CONFLICT")
			return
		}

		if _, err := cfg.Store.Remove(r.Context(), item.ID); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to remove item", "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func logsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ring == nil {
			WriteJSON(w, http.StatusOK, LogsResponse{})
			return
		}

		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer", "BAD_REQUEST")
				return
			}
			limit = parsed
		}

		WriteJSON(w, http.StatusOK, LogsResponse{Entries: cfg.Ring.Snapshot(limit)})
	}
}

// lookupItem resolves the {id} route parameter, writing the error response
// itself when the id is malformed or unknown.
func lookupItem(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*queue.Item, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "item id must be numeric", "BAD_REQUEST")
		return nil, false
	}

	item, err := cfg.Store.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load item", "INTERNAL_ERROR")
		return nil, false
	}
	if item == nil {
		WriteError(w, http.StatusNotFound, "item not found", "NOT_FOUND")
		return nil, false
	}
	return item, true
}
