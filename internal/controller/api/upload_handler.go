package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/goccy/go-json"
)

const (
	maxChunkRequest  = 64 << 20
	multipartMemory  = 8 << 20
	chunkFileField   = "file"
	maxUploadIDBytes = 128
)

type chunkResponse struct {
	Success bool `json:"success"`
	model.UploadProgress
}

type completeUploadRequest struct {
	UploadID string `json:"uploadId" validate:"required,max=128"`
}

type completeUploadResponse struct {
	Success bool         `json:"success"`
	URL     string       `json:"url"`
	Video   *model.Video `json:"video"`
}

// UploadChunk POST /api/video/upload-chunk, multipart: file, uploadId, chunkIndex, totalChunks, metadata
func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(h.logger, w, fmt.Errorf("%w: invalid multipart form", service.ErrValidation))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, err := parseChunkForm(r)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	progress, err := h.uploads.StoreChunk(r.Context(), in)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, chunkResponse{Success: true, UploadProgress: progress})
}

// CompleteUpload POST /api/video/upload-complete {uploadId}
func (h *Handler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req completeUploadRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	video, err := h.uploads.CompleteUpload(r.Context(), req.UploadID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeUploadResponse{Success: true, URL: video.URL, Video: video})
}

func parseChunkForm(r *http.Request) (service.ChunkInput, error) {
	uploadID := strings.TrimSpace(r.FormValue("uploadId"))
	if uploadID == "" || len(uploadID) > maxUploadIDBytes {
		return service.ChunkInput{}, fmt.Errorf("%w: uploadId is required", service.ErrValidation)
	}

	index, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		return service.ChunkInput{}, fmt.Errorf("%w: chunkIndex must be an integer", service.ErrValidation)
	}
	total, err := strconv.Atoi(r.FormValue("totalChunks"))
	if err != nil {
		return service.ChunkInput{}, fmt.Errorf("%w: totalChunks must be an integer", service.ErrValidation)
	}

	var meta model.UploadMetadata
	if raw := strings.TrimSpace(r.FormValue("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return service.ChunkInput{}, fmt.Errorf("%w: metadata must be a JSON object", service.ErrValidation)
		}
	}

	file, header, err := r.FormFile(chunkFileField)
	if err != nil {
		return service.ChunkInput{}, fmt.Errorf("%w: file is required", service.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.ChunkInput{}, fmt.Errorf("read chunk: %w", err)
	}

	if meta.FileName == "" {
		meta.FileName = header.Filename
	}

	return service.ChunkInput{
		UploadID:    uploadID,
		Index:       index,
		TotalChunks: total,
		Data:        data,
		Metadata:    meta,
	}, nil
}
