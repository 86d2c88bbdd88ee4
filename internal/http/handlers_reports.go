package http

import (
	"fmt"
	"net/http"

	"kas/internal/core"
	"kas/internal/export"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.report.Overview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := s.report.MonthlyStats(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGroupedByCategory(w http.ResponseWriter, r *http.Request) {
	kind := core.EntryKind(r.URL.Query().Get("kind"))
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	public := r.URL.Query().Get("public") == "true"

	groups, err := s.report.GroupedByCategory(r.Context(), kind, date, public)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.CategoryGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleTransparency is the public endpoint: always anonymized, never failing
// on an empty ledger.
func (s *Server) handleTransparency(w http.ResponseWriter, r *http.Request) {
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cacheKey := r.URL.Query().Get("date")
	if entries, ok := s.feedCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := s.report.Transparency(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.TransparencyEntry{}
	}
	s.feedCache.Set(cacheKey, entries)
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUnpaidMembers(w http.ResponseWriter, r *http.Request) {
	date, err := s.dayOrToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	unpaid, err := s.report.UnpaidMembers(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if unpaid == nil {
		unpaid = []core.Member{}
	}
	writeJSON(w, http.StatusOK, unpaid)
}

func (s *Server) handleExportRecap(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := s.report.MonthlyStats(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("rekap_%d.xlsx", year)))
	if err := export.YearRecap(w, year, stats); err != nil {
		// Headers are out; all we can do is log via the error path.
		writeError(w, r, err)
	}
}

func (s *Server) handlePublishTransparency(w http.ResponseWriter, r *http.Request) {
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.report.PublishTransparency(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"published": rows})
}
