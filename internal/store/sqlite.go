package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/filing-monitor/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	filing_id         TEXT NOT NULL UNIQUE,
	filing_date       DATETIME,
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
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS documents (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	filing_id         INTEGER NOT NULL REFERENCES filings(id),
	document_url      TEXT NOT NULL,
	filename          TEXT NOT NULL DEFAULT '',
	local_path        TEXT NOT NULL DEFAULT '',
	download_status   TEXT NOT NULL DEFAULT 'pending',
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	extraction_method TEXT NOT NULL DEFAULT '',
	char_count        INTEGER NOT NULL DEFAULT 0,
	page_count        INTEGER NOT NULL DEFAULT 0,
	file_size_bytes   INTEGER NOT NULL DEFAULT 0,
	content_type      TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (filing_id, document_url)
);

CREATE TABLE IF NOT EXISTS analyses (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	filing_id      INTEGER NOT NULL UNIQUE REFERENCES filings(id),
	record         TEXT NOT NULL,
	model          TEXT NOT NULL DEFAULT '',
	prompt_version TEXT NOT NULL DEFAULT '',
	chunk_count    INTEGER NOT NULL DEFAULT 0,
	cost_usd       REAL NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_uuid    TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_filings_status_extracted ON filings(status_extracted);
CREATE INDEX IF NOT EXISTS idx_filings_status_analyzed ON filings(status_analyzed);
CREATE INDEX IF NOT EXISTS idx_filings_status_emailed ON filings(status_emailed);
CREATE INDEX IF NOT EXISTS idx_documents_filing_id ON documents(filing_id);
CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const filingColumns = `id, filing_id, filing_date, applicant, filing_type, proceeding_number,
	title, url, status_scraped, status_downloaded, status_extracted, status_analyzed,
	status_emailed, error_message, retry_count, extracted_path, created_at, updated_at`

// stageColumn maps a stage to its filings column. Callers must pass a valid
// stage; the result is interpolated into SQL.
func stageColumn(stage model.Stage) (string, error) {
	if !stage.Valid() {
		return "", eris.Errorf("store: unknown stage %q", stage)
	}
	return "status_" + string(stage), nil
}

func defaultStatuses(f *model.Filing) {
	for _, stage := range model.Stages {
		if st, _ := f.StageStatus(stage); st == "" {
			f.SetStageStatus(stage, model.StatusPending) //nolint:errcheck
		}
	}
}

func (s *SQLiteStore) CreateFiling(ctx context.Context, f *model.Filing) error {
	defaultStatuses(f)
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO filings (filing_id, filing_date, applicant, filing_type, proceeding_number,
		 title, url, status_scraped, status_downloaded, status_extracted, status_analyzed,
		 status_emailed, error_message, retry_count, extracted_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FilingID, f.Date, f.Applicant, f.FilingType, f.ProceedingNumber,
		f.Title, f.URL, string(f.StatusScraped), string(f.StatusDownloaded),
		string(f.StatusExtracted), string(f.StatusAnalyzed), string(f.StatusEmailed),
		f.ErrorMessage, f.RetryCount, f.ExtractedPath, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert filing %s", f.FilingID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: filing insert id")
	}
	f.ID = id
	f.CreatedAt = now
	f.UpdatedAt = now

	for i := range f.Documents {
		f.Documents[i].FilingID = id
		if err := s.AddDocument(ctx, &f.Documents[i]); err != nil {
			return err
		}
	}
	return nil
}

// CreateFilings registers a batch of newly discovered filings, ignoring ones
// already present. Returns the number actually inserted.
func (s *SQLiteStore) CreateFilings(ctx context.Context, filings []model.Filing) (int64, error) {
	var inserted int64
	for i := range filings {
		exists, err := s.FilingExists(ctx, filings[i].FilingID)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if err := s.CreateFiling(ctx, &filings[i]); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *SQLiteStore) FilingExists(ctx context.Context, filingID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM filings WHERE filing_id = ?`, filingID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: filing exists %s", filingID)
	}
	return true, nil
}

func (s *SQLiteStore) GetFiling(ctx context.Context, filingID string) (*model.Filing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE filing_id = ?`, filingID,
	)
	f, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("filing not found: %s", filingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get filing %s", filingID)
	}

	if err := s.loadDocuments(ctx, f); err != nil {
		return nil, err
	}
	if err := s.loadAnalysis(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SQLiteStore) SelectReady(ctx context.Context, stage model.Stage, maxRetries int) ([]model.Filing, error) {
	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT `+filingColumns+` FROM filings
		 WHERE %s IN ('pending', 'failed') AND retry_count < ?`, col)
	if prev, ok := stage.Prev(); ok {
		prevCol, err := stageColumn(prev)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(` AND %s = 'success'`, prevCol)
	}
	query += ` ORDER BY filing_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, maxRetries)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select ready for %s", stage)
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing")
		}
		filings = append(filings, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: select ready iterate")
	}

	for i := range filings {
		if err := s.loadDocuments(ctx, &filings[i]); err != nil {
			return nil, err
		}
	}
	return filings, nil
}

func (s *SQLiteStore) ApplyOutcome(ctx context.Context, id int64, stage model.Stage, o model.Outcome) error {
	col, err := stageColumn(stage)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// A stage may only complete after its predecessor has succeeded.
	if prev, ok := stage.Prev(); ok {
		prevCol, err := stageColumn(prev)
		if err != nil {
			return err
		}
		var prevStatus string
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT %s FROM filings WHERE id = ?`, prevCol), id,
		).Scan(&prevStatus)
		if err == sql.ErrNoRows {
			return eris.Errorf("filing not found: %d", id)
		}
		if err != nil {
			return eris.Wrapf(err, "sqlite: read %s for filing %d", prevCol, id)
		}
		if model.StageStatus(prevStatus) != model.StatusSuccess {
			return eris.Errorf("store: stage %s for filing %d requires %s=success, got %s",
				stage, id, prevCol, prevStatus)
		}
	}

	now := time.Now().UTC()
	var res sql.Result
	switch o.Kind {
	case model.OutcomeSuccess:
		if stage == model.StageExtracted && o.Payload != "" {
			res, err = tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE filings SET %s = 'success', extracted_path = ?, updated_at = ? WHERE id = ?`, col),
				o.Payload, now, id,
			)
		} else {
			res, err = tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE filings SET %s = 'success', updated_at = ? WHERE id = ?`, col),
				now, id,
			)
		}
	case model.OutcomeFailure:
		res, err = tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE filings SET %s = 'failed', error_message = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?`, col),
			truncateError(o.Err), now, id,
		)
	case model.OutcomeSkip:
		res, err = tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE filings SET %s = 'success', error_message = ?, updated_at = ? WHERE id = ?`, col),
			"skipped: "+o.Reason, now, id,
		)
	default:
		return eris.Errorf("store: unknown outcome kind %q", o.Kind)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: apply %s outcome for filing %d", stage, id)
	}
	if n, err := res.RowsAffected(); err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return eris.Errorf("filing not found: %d", id)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit outcome")
}

func (s *SQLiteStore) StageSummary(ctx context.Context, maxRetries int) ([]StageCounts, error) {
	var summary []StageCounts
	for _, stage := range model.Stages {
		col, err := stageColumn(stage)
		if err != nil {
			return nil, err
		}

		readyClause := fmt.Sprintf(`%s IN ('pending', 'failed') AND retry_count < ?`, col)
		if prev, ok := stage.Prev(); ok {
			prevCol, _ := stageColumn(prev)
			readyClause += fmt.Sprintf(` AND %s = 'success'`, prevCol)
		}

		query := fmt.Sprintf(
			`SELECT
			   COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'success' THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'failed' THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN %s = 'failed' AND retry_count >= ? THEN 1 ELSE 0 END), 0)
			 FROM filings`,
			readyClause, col, col, col,
		)

		var c StageCounts
		c.Stage = stage
		err = s.db.QueryRowContext(ctx, query, maxRetries, maxRetries).
			Scan(&c.Ready, &c.Succeeded, &c.Failed, &c.Exhausted)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: stage summary for %s", stage)
		}
		summary = append(summary, c)
	}
	return summary, nil
}

func (s *SQLiteStore) PersistAnalysis(ctx context.Context, filingID int64, rec *model.AnalysisRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (filing_id, record, model, prompt_version, chunk_count, cost_usd, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (filing_id) DO UPDATE SET
		   record = excluded.record, model = excluded.model,
		   prompt_version = excluded.prompt_version, chunk_count = excluded.chunk_count,
		   cost_usd = excluded.cost_usd, updated_at = excluded.updated_at`,
		filingID, string(recordJSON), rec.Model, rec.PromptVersion,
		rec.ChunkCount, rec.CostUSD, now, now,
	)
	return eris.Wrapf(err, "sqlite: persist analysis for filing %d", filingID)
}

func (s *SQLiteStore) AddDocument(ctx context.Context, d *model.Document) error {
	if d.DownloadStatus == "" {
		d.DownloadStatus = model.StatusPending
	}
	if d.ExtractionStatus == "" {
		d.ExtractionStatus = model.StatusPending
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (filing_id, document_url, filename, local_path, download_status,
		 extraction_status, extraction_method, char_count, page_count, file_size_bytes,
		 content_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FilingID, d.DocumentURL, d.Filename, d.LocalPath, string(d.DownloadStatus),
		string(d.ExtractionStatus), d.ExtractionMethod, d.CharCount, d.PageCount,
		d.FileSizeBytes, d.ContentType, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert document for filing %d", d.FilingID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: document insert id")
	}
	d.ID = id
	d.CreatedAt = now
	return nil
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, d *model.Document) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET filename = ?, local_path = ?, download_status = ?,
		 extraction_status = ?, extraction_method = ?, char_count = ?, page_count = ?,
		 file_size_bytes = ?, content_type = ? WHERE id = ?`,
		d.Filename, d.LocalPath, string(d.DownloadStatus), string(d.ExtractionStatus),
		d.ExtractionMethod, d.CharCount, d.PageCount, d.FileSizeBytes, d.ContentType, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document %d", d.ID)
	}
	return checkRowsAffected(res, "document", d.ID)
}

func (s *SQLiteStore) StartRun(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history (run_uuid, status, started_at) VALUES (?, ?, ?)`,
		uuid.New().String(), string(model.RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: start run")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: run insert id")
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID int64, status model.RunStatus, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_history SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %d", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// helpers

func (s *SQLiteStore) loadDocuments(ctx context.Context, f *model.Filing) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filing_id, document_url, filename, local_path, download_status,
		 extraction_status, extraction_method, char_count, page_count, file_size_bytes,
		 content_type, created_at
		 FROM documents WHERE filing_id = ? ORDER BY id ASC`,
		f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load documents for filing %d", f.ID)
	}
	defer rows.Close()

	f.Documents = nil
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.FilingID, &d.DocumentURL, &d.Filename, &d.LocalPath,
			&d.DownloadStatus, &d.ExtractionStatus, &d.ExtractionMethod, &d.CharCount,
			&d.PageCount, &d.FileSizeBytes, &d.ContentType, &d.CreatedAt); err != nil {
			return eris.Wrap(err, "sqlite: scan document")
		}
		f.Documents = append(f.Documents, d)
	}
	return eris.Wrap(rows.Err(), "sqlite: load documents iterate")
}

func (s *SQLiteStore) loadAnalysis(ctx context.Context, f *model.Filing) error {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM analyses WHERE filing_id = ?`, f.ID,
	).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: load analysis for filing %d", f.ID)
	}

	f.Analysis = &model.AnalysisRecord{}
	if err := json.Unmarshal([]byte(recordJSON), f.Analysis); err != nil {
		return eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return nil
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

// truncateError renders an error for the error_message column, capped so a
// deeply wrapped chain cannot bloat the row.
func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	return msg
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFiling(row scannable) (*model.Filing, error) {
	var f model.Filing
	var date sql.NullTime

	err := row.Scan(&f.ID, &f.FilingID, &date, &f.Applicant, &f.FilingType,
		&f.ProceedingNumber, &f.Title, &f.URL, &f.StatusScraped, &f.StatusDownloaded,
		&f.StatusExtracted, &f.StatusAnalyzed, &f.StatusEmailed, &f.ErrorMessage,
		&f.RetryCount, &f.ExtractedPath, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if date.Valid {
		d := date.Time
		f.Date = &d
	}
	return &f, nil
}
