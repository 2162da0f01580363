package web

import (
	"net/http"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/logging"
	"github.com/JonMunkholm/eqviz/internal/web/middleware"
	"github.com/JonMunkholm/eqviz/internal/web/templates"
)

// handleDashboard renders the sign-in form or the signed-in user's history.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := templates.DashboardData{Capacity: s.service.History().Capacity()}

	if user, ok := middleware.UserFromContext(r.Context()); ok {
		data.Username = user.Username
		data.Token = middleware.TokenFromRequest(r)

		records, err := s.service.ListHistory(r.Context(), user.ID)
		if err != nil {
			logging.FromContext(r.Context()).Error("dashboard history", "user_id", user.ID, "error", err)
			msg := core.MapError(err)
			data.Error = &msg
		}
		data.History = records
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(data).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
