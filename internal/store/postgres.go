package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/filing-monitor/internal/db"
	"github.com/sells-group/filing-monitor/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"filing_exists":    `SELECT 1 FROM filings WHERE filing_id = $1`,
	"insert_document":  `INSERT INTO documents (filing_id, document_url, filename, local_path, download_status, extraction_status, extraction_method, char_count, page_count, file_size_bytes, content_type, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
	"update_document":  `UPDATE documents SET filename = $1, local_path = $2, download_status = $3, extraction_status = $4, extraction_method = $5, char_count = $6, page_count = $7, file_size_bytes = $8, content_type = $9 WHERE id = $10`,
	"persist_analysis": `INSERT INTO analyses (filing_id, record, model, prompt_version, chunk_count, cost_usd, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (filing_id) DO UPDATE SET record = EXCLUDED.record, model = EXCLUDED.model, prompt_version = EXCLUDED.prompt_version, chunk_count = EXCLUDED.chunk_count, cost_usd = EXCLUDED.cost_usd, updated_at = EXCLUDED.updated_at`,
	"start_run":        `INSERT INTO run_history (run_uuid, status, started_at) VALUES ($1, $2, $3) RETURNING id`,
	"finish_run":       `UPDATE run_history SET status = $1, summary = $2, finished_at = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id                BIGSERIAL PRIMARY KEY,
	filing_id         TEXT NOT NULL UNIQUE,
	filing_date       TIMESTAMPTZ,
	applicant         TEXT NOT NULL DEFAULT '',
	filing_type       TEXT NOT NULL DEFAULT '',
	proceeding_number TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	url               TEXT NOT NULL DEFAULT '',
	status_scraped    TEXT NOT NULL DEFAULT 'pending',
	status_downloaded TEXT NOT NULL DEFAULT 'pending',
	status_extracted  TEXT NOT NULL DEFAULT 'pending',
	status_analyzed   TEXT NOT NULL DEFAULT 'pending',
	status_emailed    TEXT NOT NULL DEFAULT 'pending',
	error_message     TEXT NOT NULL DEFAULT '',
	retry_count       INTEGER NOT NULL DEFAULT 0,
	extracted_path    TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id                BIGSERIAL PRIMARY KEY,
	filing_id         BIGINT NOT NULL REFERENCES filings(id),
	document_url      TEXT NOT NULL,
	filename          TEXT NOT NULL DEFAULT '',
	local_path        TEXT NOT NULL DEFAULT '',
	download_status   TEXT NOT NULL DEFAULT 'pending',
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	extraction_method TEXT NOT NULL DEFAULT '',
	char_count        INTEGER NOT NULL DEFAULT 0,
	page_count        INTEGER NOT NULL DEFAULT 0,
	file_size_bytes   BIGINT NOT NULL DEFAULT 0,
	content_type      TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (filing_id, document_url)
);

CREATE TABLE IF NOT EXISTS analyses (
	id             BIGSERIAL PRIMARY KEY,
	filing_id      BIGINT NOT NULL UNIQUE REFERENCES filings(id),
	record         JSONB NOT NULL,
	model          TEXT NOT NULL DEFAULT '',
	prompt_version TEXT NOT NULL DEFAULT '',
	chunk_count    INTEGER NOT NULL DEFAULT 0,
	cost_usd       DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_history (
	id          BIGSERIAL PRIMARY KEY,
	run_uuid    TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_filings_status_extracted ON filings(status_extracted);
CREATE INDEX IF NOT EXISTS idx_filings_status_analyzed ON filings(status_analyzed);
CREATE INDEX IF NOT EXISTS idx_filings_status_emailed ON filings(status_emailed);
CREATE INDEX IF NOT EXISTS idx_documents_filing_id ON documents(filing_id);
CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateFiling(ctx context.Context, f *model.Filing) error {
	defaultStatuses(f)
	now := time.Now().UTC()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO filings (filing_id, filing_date, applicant, filing_type, proceeding_number,
		 title, url, status_scraped, status_downloaded, status_extracted, status_analyzed,
		 status_emailed, error_message, retry_count, extracted_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`,
		f.FilingID, f.Date, f.Applicant, f.FilingType, f.ProceedingNumber,
		f.Title, f.URL, string(f.StatusScraped), string(f.StatusDownloaded),
		string(f.StatusExtracted), string(f.StatusAnalyzed), string(f.StatusEmailed),
		f.ErrorMessage, f.RetryCount, f.ExtractedPath, now, now,
	).Scan(&f.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert filing %s", f.FilingID)
	}
	f.CreatedAt = now
	f.UpdatedAt = now

	for i := range f.Documents {
		f.Documents[i].FilingID = f.ID
		if err := s.AddDocument(ctx, &f.Documents[i]); err != nil {
			return err
		}
	}
	return nil
}

// filingMetadataCols are the columns refreshed when a known filing shows up
// in a new discovery batch. Statuses and the retry budget are never touched.
var filingMetadataCols = []string{
	"filing_date", "applicant", "filing_type", "proceeding_number", "title", "url", "updated_at",
}

// CreateFilings registers a batch of discovered filings. Existing filings get
// their metadata refreshed; new filings are inserted along with their
// documents. Returns the number of new filings.
func (s *PostgresStore) CreateFilings(ctx context.Context, filings []model.Filing) (int64, error) {
	if len(filings) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	filingIDs := make([]string, 0, len(filings))
	rows := make([][]any, 0, len(filings))
	for i := range filings {
		defaultStatuses(&filings[i])
		f := &filings[i]
		filingIDs = append(filingIDs, f.FilingID)
		rows = append(rows, []any{
			f.FilingID, f.Date, f.Applicant, f.FilingType, f.ProceedingNumber,
			f.Title, f.URL, string(f.StatusScraped), string(f.StatusDownloaded),
			string(f.StatusExtracted), string(f.StatusAnalyzed), string(f.StatusEmailed),
			now, now,
		})
	}

	existing := make(map[string]bool)
	existRows, err := s.pool.Query(ctx,
		`SELECT filing_id FROM filings WHERE filing_id = ANY($1)`, filingIDs,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: query existing filings")
	}
	for existRows.Next() {
		var id string
		if err := existRows.Scan(&id); err != nil {
			existRows.Close()
			return 0, eris.Wrap(err, "postgres: scan existing filing")
		}
		existing[id] = true
	}
	existRows.Close()
	if err := existRows.Err(); err != nil {
		return 0, eris.Wrap(err, "postgres: iterate existing filings")
	}

	_, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "filings",
		Columns: []string{
			"filing_id", "filing_date", "applicant", "filing_type", "proceeding_number",
			"title", "url", "status_scraped", "status_downloaded", "status_extracted",
			"status_analyzed", "status_emailed", "created_at", "updated_at",
		},
		ConflictKeys: []string{"filing_id"},
		UpdateCols:   filingMetadataCols,
	}, rows)
	if err != nil {
		return 0, err
	}

	// Attach documents for the filings that are new to us.
	var docRows [][]any
	var inserted int64
	for i := range filings {
		f := &filings[i]
		if existing[f.FilingID] {
			continue
		}
		inserted++
		if len(f.Documents) == 0 {
			continue
		}

		var filingPK int64
		err := s.pool.QueryRow(ctx,
			`SELECT id FROM filings WHERE filing_id = $1`, f.FilingID,
		).Scan(&filingPK)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: resolve filing %s", f.FilingID)
		}
		f.ID = filingPK

		for j := range f.Documents {
			d := &f.Documents[j]
			d.FilingID = filingPK
			if d.DownloadStatus == "" {
				d.DownloadStatus = model.StatusPending
			}
			if d.ExtractionStatus == "" {
				d.ExtractionStatus = model.StatusPending
			}
			docRows = append(docRows, []any{
				filingPK, d.DocumentURL, d.Filename, d.LocalPath, string(d.DownloadStatus),
				string(d.ExtractionStatus), d.ExtractionMethod, d.CharCount, d.PageCount,
				d.FileSizeBytes, d.ContentType, now,
			})
		}
	}

	if len(docRows) > 0 {
		_, err = db.CopyFrom(ctx, s.pool, "documents", []string{
			"filing_id", "document_url", "filename", "local_path", "download_status",
			"extraction_status", "extraction_method", "char_count", "page_count",
			"file_size_bytes", "content_type", "created_at",
		}, docRows)
		if err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

func (s *PostgresStore) FilingExists(ctx context.Context, filingID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM filings WHERE filing_id = $1`, filingID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: filing exists %s", filingID)
	}
	return true, nil
}

func (s *PostgresStore) GetFiling(ctx context.Context, filingID string) (*model.Filing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE filing_id = $1`, filingID,
	)
	f, err := scanFiling(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("filing not found: %s", filingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get filing %s", filingID)
	}

	if err := s.loadDocuments(ctx, f); err != nil {
		return nil, err
	}
	if err := s.loadAnalysis(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PostgresStore) SelectReady(ctx context.Context, stage model.Stage, maxRetries int) ([]model.Filing, error) {
	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT `+filingColumns+` FROM filings
		 WHERE %s IN ('pending', 'failed') AND retry_count < $1`, col)
	if prev, ok := stage.Prev(); ok {
		prevCol, err := stageColumn(prev)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(` AND %s = 'success'`, prevCol)
	}
	query += ` ORDER BY filing_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, maxRetries)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select ready for %s", stage)
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan filing")
		}
		filings = append(filings, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: select ready iterate")
	}

	for i := range filings {
		if err := s.loadDocuments(ctx, &filings[i]); err != nil {
			return nil, err
		}
	}
	return filings, nil
}

func (s *PostgresStore) ApplyOutcome(ctx context.Context, id int64, stage model.Stage, o model.Outcome) error {
	col, err := stageColumn(stage)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// A stage may only complete after its predecessor has succeeded.
	if prev, ok := stage.Prev(); ok {
		prevCol, err := stageColumn(prev)
		if err != nil {
			return err
		}
		var prevStatus string
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM filings WHERE id = $1 FOR UPDATE`, prevCol), id,
		).Scan(&prevStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Errorf("filing not found: %d", id)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: read %s for filing %d", prevCol, id)
		}
		if model.StageStatus(prevStatus) != model.StatusSuccess {
			return eris.Errorf("store: stage %s for filing %d requires %s=success, got %s",
				stage, id, prevCol, prevStatus)
		}
	}

	now := time.Now().UTC()
	var tag pgconn.CommandTag
	switch o.Kind {
	case model.OutcomeSuccess:
		if stage == model.StageExtracted && o.Payload != "" {
			tag, err = tx.Exec(ctx,
				fmt.Sprintf(`UPDATE filings SET %s = 'success', extracted_path = $1, updated_at = $2 WHERE id = $3`, col),
				o.Payload, now, id,
			)
		} else {
			tag, err = tx.Exec(ctx,
				fmt.Sprintf(`UPDATE filings SET %s = 'success', updated_at = $1 WHERE id = $2`, col),
				now, id,
			)
		}
	case model.OutcomeFailure:
		tag, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE filings SET %s = 'failed', error_message = $1, retry_count = retry_count + 1, updated_at = $2 WHERE id = $3`, col),
			truncateError(o.Err), now, id,
		)
	case model.OutcomeSkip:
		tag, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE filings SET %s = 'success', error_message = $1, updated_at = $2 WHERE id = $3`, col),
			"skipped: "+o.Reason, now, id,
		)
	default:
		return eris.Errorf("store: unknown outcome kind %q", o.Kind)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: apply %s outcome for filing %d", stage, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("filing not found: %d", id)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit outcome")
}

func (s *PostgresStore) StageSummary(ctx context.Context, maxRetries int) ([]StageCounts, error) {
	var summary []StageCounts
	for _, stage := range model.Stages {
		col, err := stageColumn(stage)
		if err != nil {
			return nil, err
		}

		readyClause := fmt.Sprintf(`%s IN ('pending', 'failed') AND retry_count < $1`, col)
		if prev, ok := stage.Prev(); ok {
			prevCol, _ := stageColumn(prev)
			readyClause += fmt.Sprintf(` AND %s = 'success'`, prevCol)
		}

		query := fmt.Sprintf(
			`SELECT
			   COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'success' THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'failed' THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'failed' AND retry_count >= $2 THEN 1 ELSE 0 END), 0)
			 FROM filings`,
			readyClause, col, col, col,
		)

		var c StageCounts
		c.Stage = stage
		err = s.pool.QueryRow(ctx, query, maxRetries, maxRetries).
			Scan(&c.Ready, &c.Succeeded, &c.Failed, &c.Exhausted)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: stage summary for %s", stage)
		}
		summary = append(summary, c)
	}
	return summary, nil
}

func (s *PostgresStore) PersistAnalysis(ctx context.Context, filingID int64, rec *model.AnalysisRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (filing_id, record, model, prompt_version, chunk_count, cost_usd, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (filing_id) DO UPDATE SET
		   record = EXCLUDED.record, model = EXCLUDED.model,
		   prompt_version = EXCLUDED.prompt_version, chunk_count = EXCLUDED.chunk_count,
		   cost_usd = EXCLUDED.cost_usd, updated_at = EXCLUDED.updated_at`,
		filingID, recordJSON, rec.Model, rec.PromptVersion, rec.ChunkCount, rec.CostUSD, now, now,
	)
	return eris.Wrapf(err, "postgres: persist analysis for filing %d", filingID)
}

func (s *PostgresStore) AddDocument(ctx context.Context, d *model.Document) error {
	if d.DownloadStatus == "" {
		d.DownloadStatus = model.StatusPending
	}
	if d.ExtractionStatus == "" {
		d.ExtractionStatus = model.StatusPending
	}
	now := time.Now().UTC()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (filing_id, document_url, filename, local_path, download_status,
		 extraction_status, extraction_method, char_count, page_count, file_size_bytes,
		 content_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		d.FilingID, d.DocumentURL, d.Filename, d.LocalPath, string(d.DownloadStatus),
		string(d.ExtractionStatus), d.ExtractionMethod, d.CharCount, d.PageCount,
		d.FileSizeBytes, d.ContentType, now,
	).Scan(&d.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert document for filing %d", d.FilingID)
	}
	d.CreatedAt = now
	return nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d *model.Document) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET filename = $1, local_path = $2, download_status = $3,
		 extraction_status = $4, extraction_method = $5, char_count = $6, page_count = $7,
		 file_size_bytes = $8, content_type = $9 WHERE id = $10`,
		d.Filename, d.LocalPath, string(d.DownloadStatus), string(d.ExtractionStatus),
		d.ExtractionMethod, d.CharCount, d.PageCount, d.FileSizeBytes, d.ContentType, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document %d", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %d", d.ID)
	}
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO run_history (run_uuid, status, started_at) VALUES ($1, $2, $3) RETURNING id`,
		uuid.New().String(), string(model.RunStatusRunning), time.Now().UTC(),
	).Scan(&id)
	return id, eris.Wrap(err, "postgres: start run")
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID int64, status model.RunStatus, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_history SET status = $1, summary = $2, finished_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %d", runID)
	}
	return nil
}

// helpers

func (s *PostgresStore) loadDocuments(ctx context.Context, f *model.Filing) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filing_id, document_url, filename, local_path, download_status,
		 extraction_status, extraction_method, char_count, page_count, file_size_bytes,
		 content_type, created_at
		 FROM documents WHERE filing_id = $1 ORDER BY id ASC`,
		f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: load documents for filing %d", f.ID)
	}
	defer rows.Close()

	f.Documents = nil
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.FilingID, &d.DocumentURL, &d.Filename, &d.LocalPath,
			&d.DownloadStatus, &d.ExtractionStatus, &d.ExtractionMethod, &d.CharCount,
			&d.PageCount, &d.FileSizeBytes, &d.ContentType, &d.CreatedAt); err != nil {
			return eris.Wrap(err, "postgres: scan document")
		}
		f.Documents = append(f.Documents, d)
	}
	return eris.Wrap(rows.Err(), "postgres: load documents iterate")
}

func (s *PostgresStore) loadAnalysis(ctx context.Context, f *model.Filing) error {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM analyses WHERE filing_id = $1`, f.ID,
	).Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: load analysis for filing %d", f.ID)
	}

	f.Analysis = &model.AnalysisRecord{}
	if err := json.Unmarshal(recordJSON, f.Analysis); err != nil {
		return eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return nil
}
