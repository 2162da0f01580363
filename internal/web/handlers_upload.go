package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/web/middleware"
)

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	Summary   core.Summary `json:"summary"`
}

// handleUpload validates, summarizes and records one CSV file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		s.fail(w, r, uploadFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, uploadFormError(err))
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	rec, err := s.service.Upload(ctx, user.ID, header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, uploadResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
		Summary:   rec.Summary,
	})
}

// uploadFormError maps multipart parsing failures to upload errors.
func uploadFormError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return core.ErrNoFile
	default:
		return fmt.Errorf("read upload: %w", err)
	}
}

// handleUploadQueue reports the upload limiter state.
func (s *Server) handleUploadQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.UploadLimiterStatus())
}
