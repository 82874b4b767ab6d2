package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"totalreturn/pkg/totalreturn"
)

// maxUploadBytes caps a single CSV upload at 20MB.
const maxUploadBytes = 20 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadCSV accepts a CSV document either as a multipart form field named
// "file" or as a raw request body with a "filename" query parameter.
func (h *handler) uploadCSV(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	filename, content, err := readUploadedFile(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}

	saved, err := h.core.SaveUpload(kind, filename, content)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, fmt.Sprintf("uploaded %s", saved.Filename), saved)
}

func readUploadedFile(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("read multipart file: %w", err)
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("read multipart file: %w", err)
		}
		return header.Filename, content, nil
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		return "", nil, errors.New("filename query parameter is required for raw uploads")
	}
	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read request body: %w", err)
	}
	return filename, content, nil
}

func (h *handler) listUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.core.ListUploads(chi.URLParam(r, "kind"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, uploads)
}

func (h *handler) clearUploads(w http.ResponseWriter, r *http.Request) {
	n, err := h.core.ClearUploads(chi.URLParam(r, "kind"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, fmt.Sprintf("removed %d uploads", n), map[string]int64{"deleted": n})
}

func (h *handler) deleteUpload(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	filename := chi.URLParam(r, "filename")
	deleted, err := h.core.DeleteUpload(kind, filename)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeErrorResponse(w, http.StatusNotFound,
			totalreturn.NewError(totalreturn.ErrCodeNotFound, fmt.Sprintf("no %s upload named %s", kind, filename)))
		return
	}
	writeSuccessWithMessage(w, fmt.Sprintf("deleted %s", filename), nil)
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.core.ComputeSummary()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, rows)
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := h.core.GetPortfolio(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, view)
}

func (h *handler) postInsights(w http.ResponseWriter, r *http.Request) {
	var payload insightsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.core.AnalyzePortfolio(r.Context(), totalreturn.InsightsRequest{
		BaseURL: payload.BaseURL,
		APIKey:  payload.APIKey,
		Model:   payload.Model,
		Focus:   payload.Focus,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
