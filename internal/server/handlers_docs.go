package server

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/documents"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, failure{Message: "File is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, failure{Message: "No file part"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure{Message: "No file part"})
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, failure{Message: "No selected file"})
		return
	}

	claims, _ := auth.CurrentUser(r.Context())
	ctx := documents.WithUploader(r.Context(), claims.UserID)

	res, err := s.deps.Uploads.Upload(ctx, file, header.Filename, r.FormValue("title"), r.FormValue("author"))
	if err != nil {
		s.logger.Warn("upload failed",
			zap.String("filename", header.Filename),
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		writeJSON(w, apperr.HTTPStatus(err), failure{Message: apperr.Message(err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "File uploaded successfully",
		"document": res.Document,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := s.deps.Documents.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.deps.Documents.Count(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}
