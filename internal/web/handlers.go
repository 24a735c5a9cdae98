package web

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const defaultListLimit = 50

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	experimentID := r.URL.Query().Get("experiment_id")
	kind := r.URL.Query().Get("kind")
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.reportRepo.List(ctx, experimentID, kind, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"reports": reports})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
