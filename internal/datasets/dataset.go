// Package datasets is the out-of-core-scope boundary repository for
// uploaded herd snapshots: it owns the dataset table row and the raw CSV
// bytes in the object store, but not CSV parsing semantics (row mapping,
// header detection) beyond what is needed to hand the core a
// []simulator.SourceRow. Grounded on the teacher's job/export repository
// pattern, generalized to a single-entity CRUD surface.
package datasets

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairyforecast/herdsim/internal/artifacts"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/simulator"
)

// Dataset is one uploaded herd snapshot's catalog row.
type Dataset struct {
	ID                string
	OwnerID           string
	OriginalFilename  string
	RowCount          int
	UploadedAt        time.Time
	ObjectKey         string
	StatusHistogram   map[string]int
	SuggestedReportDate time.Time
}

// Repository is the Postgres-backed dataset catalog plus the object-store
// lookup needed to turn a stored CSV back into source rows.
type Repository struct {
	pool      *pgxpool.Pool
	artifacts *artifacts.Store
}

// NewRepository wraps a connection pool and the artifact store.
func NewRepository(pool *pgxpool.Pool, artifactStore *artifacts.Store) *Repository {
	return &Repository{pool: pool, artifacts: artifactStore}
}

// requiredColumns are the logical columns every dataset must map, by
// header name (case-insensitive).
var requiredColumns = []string{"animal_id", "birth_date", "status", "lactation"}

// Ingest persists raw CSV bytes for a new dataset: it validates the
// required columns are present, stores the bytes under
// datasets/{uuid}.csv, computes a status histogram, and derives a
// suggested report date (the most recent date seen across last_calving,
// dry_off and archive columns, or today if none are present).
func (r *Repository) Ingest(ctx context.Context, ownerID, filename string, raw []byte) (*Dataset, error) {
	rows, header, err := parseCSV(raw)
	if err != nil {
		return nil, forecasterr.RequestValidation(err.Error())
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	histogram := map[string]int{}
	suggested := time.Time{}
	statusIdx := indexOf(header, "status")
	for _, row := range rows {
		histogram[row[statusIdx]]++
	}
	for _, col := range []string{"last_calving", "dry_off", "archive_date"} {
		idx := indexOf(header, col)
		if idx < 0 {
			continue
		}
		for _, row := range rows {
			if row[idx] == "" {
				continue
			}
			t, err := time.Parse("2006-01-02", row[idx])
			if err == nil && t.After(suggested) {
				suggested = t
			}
		}
	}
	if suggested.IsZero() {
		suggested = time.Now().UTC().Truncate(24 * time.Hour)
	}

	id := uuid.NewString()
	key := artifacts.DatasetKey(id)
	if err := r.artifacts.Put(ctx, artifacts.BucketDatasets, key, raw, "text/csv"); err != nil {
		return nil, forecasterr.DependencyUnavailable(err.Error())
	}

	histogramJSON, err := json.Marshal(histogram)
	if err != nil {
		return nil, fmt.Errorf("marshal status histogram: %w", err)
	}

	const query = `
		INSERT INTO datasets (id, owner_id, original_filename, row_count, uploaded_at, object_key, status_histogram, suggested_report_date)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7)
	`
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, query, id, ownerID, filename, len(rows), key, histogramJSON, suggested); err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}

	return &Dataset{
		ID: id, OwnerID: ownerID, OriginalFilename: filename, RowCount: len(rows),
		UploadedAt: now, ObjectKey: key, StatusHistogram: histogram, SuggestedReportDate: suggested,
	}, nil
}

// Get fetches a dataset's catalog row, owner-scoped.
func (r *Repository) Get(ctx context.Context, ownerID, datasetID string) (*Dataset, error) {
	const query = `
		SELECT id, owner_id, original_filename, row_count, uploaded_at, object_key, status_histogram, suggested_report_date
		FROM datasets WHERE id = $1 AND owner_id = $2
	`
	var d Dataset
	var histogramJSON []byte
	err := r.pool.QueryRow(ctx, query, datasetID, ownerID).Scan(
		&d.ID, &d.OwnerID, &d.OriginalFilename, &d.RowCount, &d.UploadedAt, &d.ObjectKey, &histogramJSON, &d.SuggestedReportDate,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, forecasterr.DatasetNotFound(datasetID)
		}
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if err := json.Unmarshal(histogramJSON, &d.StatusHistogram); err != nil {
		return nil, fmt.Errorf("unmarshal status histogram: %w", err)
	}
	return &d, nil
}

// LoadRows implements worker.DatasetLoader: it fetches the dataset's
// catalog row to find its object key, downloads the raw CSV, and
// re-parses it into source rows the simulator can seed a population
// from.
func (r *Repository) LoadRows(ctx context.Context, datasetID string) ([]simulator.SourceRow, error) {
	const query = `SELECT object_key FROM datasets WHERE id = $1`
	var key string
	if err := r.pool.QueryRow(ctx, query, datasetID).Scan(&key); err != nil {
		if err == pgx.ErrNoRows {
			return nil, forecasterr.DatasetNotFound(datasetID)
		}
		return nil, fmt.Errorf("lookup dataset object key: %w", err)
	}

	raw, err := r.artifacts.Get(ctx, artifacts.BucketDatasets, key)
	if err != nil {
		return nil, err
	}

	rows, header, err := parseCSV(raw)
	if err != nil {
		return nil, forecasterr.Internal(err)
	}
	return toSourceRows(rows, header)
}

func validateHeader(header []string) error {
	for _, col := range requiredColumns {
		if indexOf(header, col) < 0 {
			return forecasterr.RequestValidation(fmt.Sprintf("missing required column %q", col))
		}
	}
	return nil
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i
		}
	}
	return -1
}

func parseCSV(raw []byte) ([][]string, []string, error) {
	r := csv.NewReader(strings.NewReader(string(raw)))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty dataset")
	}
	return records[1:], records[0], nil
}

func toSourceRows(rows [][]string, header []string) ([]simulator.SourceRow, error) {
	idIdx := indexOf(header, "animal_id")
	birthIdx := indexOf(header, "birth_date")
	lactIdx := indexOf(header, "lactation")
	lastCalvingIdx := indexOf(header, "last_calving")
	successInsemIdx := indexOf(header, "success_insem")
	dryOffIdx := indexOf(header, "dry_off")
	archiveIdx := indexOf(header, "archive_date")

	out := make([]simulator.SourceRow, 0, len(rows))
	for _, record := range rows {
		id, err := strconv.Atoi(record[idIdx])
		if err != nil {
			return nil, forecasterr.RequestValidation(fmt.Sprintf("invalid animal_id %q", record[idIdx]))
		}
		birth, err := time.Parse("2006-01-02", record[birthIdx])
		if err != nil {
			return nil, forecasterr.RequestValidation(fmt.Sprintf("invalid birth_date %q", record[birthIdx]))
		}
		lact, _ := strconv.Atoi(record[lactIdx])

		row := simulator.SourceRow{ID: id, BirthDate: birth, Lactation: lact}
		if t, ok := parseOptionalDate(record, lastCalvingIdx); ok {
			row.HasLastCalving, row.LastCalving = true, t
		}
		if t, ok := parseOptionalDate(record, successInsemIdx); ok {
			row.HasSuccessInsem, row.SuccessInsem = true, t
		}
		if t, ok := parseOptionalDate(record, dryOffIdx); ok {
			row.HasDryOff, row.DryOff = true, t
		}
		if t, ok := parseOptionalDate(record, archiveIdx); ok {
			row.HasArchive, row.Archive = true, t
		}
		out = append(out, row)
	}
	return out, nil
}

func parseOptionalDate(record []string, idx int) (time.Time, bool) {
	if idx < 0 || idx >= len(record) || record[idx] == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", record[idx])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
