package idserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
	"github.com/omeyang/xsnow/pkg/util/xid"
)

type idsResponse struct {
	IDs []string `json:"ids"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Breaker string `json:"breaker,omitempty"`
}

// parseCount 解析 count 查询参数，缺省为 1。
func (s *Server) parseCount(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errInvalidCount, raw)
	}
	if n < 1 || n > s.cfg.MaxBatch {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", errInvalidCount, n, s.cfg.MaxBatch)
	}
	return n, nil
}

func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request) {
	n, err := s.parseCount(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ids, err := s.gen.NewBatchWithRetry(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := idsResponse{IDs: make([]string, len(ids))}
	for i, id := range ids {
		resp.IDs[i] = strconv.FormatInt(id, 10)
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	id, err := xid.ParseDecimal(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	parts, err := s.gen.Decompose(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, parts)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.gen.Source().Describe())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Engine: s.gen.Source().Describe().Engine.String(),
	}
	status := http.StatusOK
	if b := s.gen.Breaker(); b != nil {
		state := b.State()
		resp.Breaker = state.String()
		if state == xbreaker.StateOpen {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, r, status, resp)
}
