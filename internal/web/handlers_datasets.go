package web

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/eqviz/internal/report"
	"github.com/JonMunkholm/eqviz/internal/web/middleware"
	"github.com/go-chi/chi/v5"
)

type historyItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	TotalCount int       `json:"total_count"`
}

// handleHistory lists the user's datasets, most recent first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	records, err := s.service.ListHistory(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:         rec.ID,
			Name:       rec.Name,
			CreatedAt:  rec.CreatedAt,
			TotalCount: rec.Summary.TotalCount,
		})
	}
	writeJSON(w, r, http.StatusOK, items)
}

// handleSummary returns the dataset's summary: total_count, statistics and
// type_distribution at the top level.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	rec, err := s.service.GetDataset(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec.Summary)
}

// handleDownloadCSV returns the bytes exactly as uploaded.
func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := s.service.GetDataset(r.Context(), user.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.service.GetDatasetCSV(r.Context(), user.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleReport renders the dataset's PDF report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	rec, err := s.service.GetDataset(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	pdf, err := s.reports.Render(r.Context(), rec, user.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Write(pdf)
}
