package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

type healthResponse struct {
	Status  string `json:"status"`
	Breaker string `json:"breaker,omitempty"`
	Version string `json:"version,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.cfg.Version}
	status := http.StatusOK
	if s.breaker != nil {
		state := s.breaker.State()
		resp.Breaker = state.String()
		if state == resilience.StateOpen {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.invoker.Registry().List()
	descriptors := make([]tool.Descriptor, 0, len(tools))
	for _, t := range tools {
		descriptors = append(descriptors, tool.Describe(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": descriptors})
}

func (s *Server) handleDescribeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.invoker.Registry().Get(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown tool: "+name)
		return
	}
	writeJSON(w, http.StatusOK, tool.Describe(t))
}

func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.invoker.Registry().Has(name) {
		writeError(w, r, http.StatusNotFound, "unknown tool: "+name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		writeError(w, r, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	ctx := middleware.WithTransport(r.Context(), TransportName)
	if id := chimw.GetReqID(ctx); id != "" {
		ctx = middleware.WithRequestID(ctx, id)
	}

	result, err := s.invoker.Invoke(ctx, name, body)
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, r, http.StatusNotFound, "unknown tool: "+name)
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Output)
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusNotFound, "query log is not readable")
		return
	}

	q := r.URL.Query()
	filter := querylog.ListFilter{
		ToolName:   q.Get("tool"),
		FailedOnly: q.Get("failed") == "true",
		Limit:      50,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	entries, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []querylog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: chimw.GetReqID(r.Context())})
}
