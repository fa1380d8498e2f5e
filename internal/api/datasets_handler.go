package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/datasets"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

// DatasetsHandler implements the dataset upload/fetch boundary.
type DatasetsHandler struct {
	Repo           *datasets.Repository
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// NewDatasetsHandler wires a DatasetsHandler's collaborators.
func NewDatasetsHandler(repo *datasets.Repository, logger *zap.Logger, maxUploadBytes int64) *DatasetsHandler {
	return &DatasetsHandler{Repo: repo, Logger: logger, MaxUploadBytes: maxUploadBytes}
}

type datasetResponse struct {
	ID                  string         `json:"id"`
	OriginalFilename    string         `json:"original_filename"`
	RowCount            int            `json:"row_count"`
	StatusHistogram     map[string]int `json:"status_histogram"`
	SuggestedReportDate string         `json:"suggested_report_date"`
	UploadedAt          string         `json:"uploaded_at"`
}

func convertDataset(d *datasets.Dataset) datasetResponse {
	return datasetResponse{
		ID: d.ID, OriginalFilename: d.OriginalFilename, RowCount: d.RowCount,
		StatusHistogram:     d.StatusHistogram,
		SuggestedReportDate: d.SuggestedReportDate.Format("2006-01-02"),
		UploadedAt:          d.UploadedAt.Format(time.RFC3339),
	}
}

// Upload handles POST /forecasts/v1/datasets, a multipart-free raw-body
// CSV upload (filename carried in the Content-Disposition-style header
// X-Dataset-Filename, matching this boundary's stated minimalism: the CSV
// dialect itself is an external collaborator's concern).
func (h *DatasetsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, h.Logger, forecasterr.RequestValidation("failed to read upload body: "+err.Error()))
		return
	}
	filename := r.Header.Get("X-Dataset-Filename")
	if filename == "" {
		filename = "upload.csv"
	}

	ds, err := h.Repo.Ingest(r.Context(), ownerID(r), filename, raw)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	respondJSON(w, h.Logger, http.StatusCreated, convertDataset(ds))
}

// Get handles GET /forecasts/v1/datasets/{datasetId}
func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Repo.Get(r.Context(), ownerID(r), chi.URLParam(r, "datasetId"))
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	respondJSON(w, h.Logger, http.StatusOK, convertDataset(ds))
}
