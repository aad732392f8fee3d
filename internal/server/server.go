package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/flow"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/internal/store"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"go.uber.org/zap"
)

// Handler serves the quest API and owns the registry of open runs.
type Handler struct {
	mux         *http.ServeMux
	now         func() time.Time
	logger      *zap.Logger
	engine      *flow.Engine
	store       store.Store
	maxBodySize int64
	maxRuns     int
	version     string

	mu   sync.Mutex
	runs map[string]*activeRun
}

// activeRun serializes requests against one controller.
type activeRun struct {
	mu       sync.Mutex
	ctrl     *flow.Controller
	lastSeen time.Time
}

// Options tunes the handler.
type Options struct {
	MaxBodySize int64
	MaxRuns     int
	Version     string
	// Now overrides the clock used to track run activity.
	Now func() time.Time
}

// NewHandler constructs the HTTP handler that serves the quest API. The store
// is read for history and progress; completion records reach it through the
// engine.
func NewHandler(logger *zap.Logger, engine *flow.Engine, st store.Store, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = store.NewNoopStore()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = constants.DefaultMaxActiveRuns
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &Handler{
		mux:         http.NewServeMux(),
		now:         opts.Now,
		logger:      logger,
		engine:      engine,
		store:       st,
		maxBodySize: opts.MaxBodySize,
		maxRuns:     opts.MaxRuns,
		version:     trimmedVersion,
		runs:        make(map[string]*activeRun),
	}

	mux := h.mux
	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.HandleFunc("GET /api/quests", h.handleQuestTypes)
	mux.HandleFunc("GET /api/progress", h.handleProgress)
	mux.HandleFunc("GET /api/history", h.handleHistory)

	mux.HandleFunc("POST /api/runs", h.handleCreateRun)
	mux.HandleFunc("GET /api/runs/{id}", h.handleGetRun)
	mux.HandleFunc("DELETE /api/runs/{id}", h.handleAbandonRun)
	mux.HandleFunc("PATCH /api/runs/{id}/data", h.handleUpdateData)
	mux.HandleFunc("POST /api/runs/{id}/validate", h.handleValidate)
	mux.HandleFunc("POST /api/runs/{id}/advance", h.handleAdvance)
	mux.HandleFunc("POST /api/runs/{id}/retreat", h.handleRetreat)
	mux.HandleFunc("POST /api/runs/{id}/jump", h.handleJump)
	mux.HandleFunc("POST /api/runs/{id}/finish", h.handleFinish)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// ActiveRuns returns the number of open runs.
func (h *Handler) ActiveRuns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

// ExpireIdleRuns drops runs that saw no request for longer than maxIdle and
// returns how many were dropped. Runs busy with a request are kept.
func (h *Handler) ExpireIdleRuns(maxIdle time.Duration) int {
	cutoff := h.now().Add(-maxIdle)

	h.mu.Lock()
	defer h.mu.Unlock()

	expired := 0
	for id, run := range h.runs {
		if !run.mu.TryLock() {
			continue
		}
		idle := run.lastSeen.Before(cutoff)
		run.mu.Unlock()
		if idle {
			delete(h.runs, id)
			expired++
		}
	}
	return expired
}

type createRunRequest struct {
	QuestType string       `json:"questType"`
	Data      *quest.Patch `json:"data,omitempty"`
}

type runResponse struct {
	flow.State
	CanAdvance bool              `json:"canAdvance"`
	Snapshot   *metrics.Snapshot `json:"snapshot,omitempty"`
	Branch     *outcome.Branch   `json:"branch,omitempty"`
}

type validateResponse struct {
	Valid  bool        `json:"valid"`
	Field  quest.Field `json:"field,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

type finishResponse struct {
	Record  completion.Record `json:"record"`
	Saved   bool              `json:"saved"`
	Warning string            `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Field quest.Field `json:"field,omitempty"`
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *Handler) handleQuestTypes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.QuestTypes())
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.store.Progress(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to load progress: %v", err), "server.handleProgress")
		return
	}
	h.writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.History(r.Context(), r.URL.Query().Get("quest"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to load history: %v", err), "server.handleHistory")
		return
	}
	if records == nil {
		records = []completion.Record{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateRun"

	var req createRunRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}

	h.mu.Lock()
	full := len(h.runs) >= h.maxRuns
	h.mu.Unlock()
	if full {
		h.respondErrorWithOp(w, http.StatusTooManyRequests, "too many active quest runs", op)
		return
	}

	ctrl, err := h.engine.CreateQuestFlow(req.QuestType, req.Data)
	if err != nil {
		h.respondEngineError(w, err, op)
		return
	}

	h.mu.Lock()
	if len(h.runs) >= h.maxRuns {
		h.mu.Unlock()
		h.respondErrorWithOp(w, http.StatusTooManyRequests, "too many active quest runs", op)
		return
	}
	h.runs[ctrl.RunID()] = &activeRun{ctrl: ctrl, lastSeen: h.now()}
	h.mu.Unlock()

	h.writeJSON(w, http.StatusCreated, buildRunResponse(ctrl))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, "server.handleGetRun", func(ctrl *flow.Controller) (int, any, error) {
		return http.StatusOK, buildRunResponse(ctrl), nil
	})
}

func (h *Handler) handleAbandonRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.mu.Lock()
	_, ok := h.runs[id]
	delete(h.runs, id)
	h.mu.Unlock()

	if !ok {
		h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("unknown run %q", id), "server.handleAbandonRun")
		return
	}
	h.logger.Info("quest run abandoned",
		zap.String("op", "server.handleAbandonRun"),
		zap.String("runId", id),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateData"

	var patch quest.Patch
	if !h.decodeBody(w, r, &patch, op) {
		return
	}
	h.withRun(w, r, op, func(ctrl *flow.Controller) (int, any, error) {
		if err := ctrl.UpdateData(patch); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, buildRunResponse(ctrl), nil
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidate"

	var patch quest.Patch
	if !h.decodeBody(w, r, &patch, op) {
		return
	}
	h.withRun(w, r, op, func(ctrl *flow.Controller) (int, any, error) {
		err := ctrl.ValidatePatch(patch)
		if err == nil {
			return http.StatusOK, validateResponse{Valid: true}, nil
		}
		var inputErr *quest.InputError
		if errors.As(err, &inputErr) {
			return http.StatusOK, validateResponse{Field: inputErr.Field, Reason: inputErr.Reason}, nil
		}
		return 0, nil, err
	})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, "server.handleAdvance", func(ctrl *flow.Controller) (int, any, error) {
		if err := ctrl.Advance(); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, buildRunResponse(ctrl), nil
	})
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, "server.handleRetreat", func(ctrl *flow.Controller) (int, any, error) {
		if err := ctrl.Retreat(); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, buildRunResponse(ctrl), nil
	})
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleJump"

	var target quest.Position
	if !h.decodeBody(w, r, &target, op) {
		return
	}
	h.withRun(w, r, op, func(ctrl *flow.Controller) (int, any, error) {
		if err := ctrl.JumpTo(target); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, buildRunResponse(ctrl), nil
	})
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFinish"

	h.withRun(w, r, op, func(ctrl *flow.Controller) (int, any, error) {
		rec, err := ctrl.Finish(r.Context())
		if errors.Is(err, flow.ErrPersistence) {
			return http.StatusOK, finishResponse{Record: rec, Warning: err.Error()}, nil
		}
		if err != nil {
			return 0, nil, err
		}

		// The run is over once its record is stored.
		h.mu.Lock()
		delete(h.runs, ctrl.RunID())
		h.mu.Unlock()
		return http.StatusOK, finishResponse{Record: rec, Saved: true}, nil
	})
}

// withRun looks up the run named in the path, holds its lock while fn runs
// and writes fn's result or error.
func (h *Handler) withRun(w http.ResponseWriter, r *http.Request, op string, fn func(*flow.Controller) (int, any, error)) {
	id := r.PathValue("id")

	h.mu.Lock()
	run, ok := h.runs[id]
	h.mu.Unlock()
	if !ok {
		h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("unknown run %q", id), op)
		return
	}

	run.mu.Lock()
	status, payload, err := fn(run.ctrl)
	run.lastSeen = h.now()
	run.mu.Unlock()

	if err != nil {
		h.respondEngineError(w, err, op)
		return
	}
	h.writeJSON(w, status, payload)
}

func buildRunResponse(ctrl *flow.Controller) runResponse {
	resp := runResponse{State: ctrl.State(), CanAdvance: ctrl.CanAdvance()}
	if snapshot, err := ctrl.Snapshot(); err == nil {
		resp.Snapshot = &snapshot
	}
	if ctrl.CurrentPhase() == quest.PhaseDebrief {
		if branch, err := ctrl.Branch(); err == nil {
			resp.Branch = &branch
		}
	}
	return resp
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
		case errors.Is(err, io.EOF):
			h.respondErrorWithOp(w, http.StatusBadRequest, "request body is empty", op)
		default:
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), op)
		}
		return false
	}
	return true
}

// respondEngineError maps engine errors onto HTTP statuses.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error, op string) {
	var inputErr *quest.InputError
	switch {
	case errors.As(err, &inputErr):
		h.logger.Debug("input rejected",
			zap.String("op", op),
			zap.String("field", string(inputErr.Field)),
			zap.String("reason", inputErr.Reason),
		)
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: inputErr.Field})
	case errors.Is(err, quest.ErrInvalidInput):
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
	case errors.Is(err, flow.ErrUnknownQuestType):
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
	case errors.Is(err, quest.ErrInvalidTransition):
		h.respondErrorWithOp(w, http.StatusConflict, err.Error(), op)
	default:
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *Handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("quest request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Warn("quest request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
