package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/xengage/internal/engagement"
	"github.com/ibeckermayer/xengage/internal/types"
)

// Store handles all database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		seed_post_url TEXT,
		status TEXT NOT NULL,
		error TEXT,
		output_path TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS feed_items (
		run_id TEXT NOT NULL REFERENCES runs(id),
		source TEXT NOT NULL,
		item_key TEXT NOT NULL,
		identity TEXT NOT NULL,
		position INTEGER NOT NULL,
		observed_at DATETIME,
		PRIMARY KEY (run_id, source, item_key)
	);

	CREATE TABLE IF NOT EXISTS target_posts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		target TEXT NOT NULL,
		post_id TEXT,
		url TEXT,
		pinned BOOLEAN,
		error TEXT,
		PRIMARY KEY (run_id, target)
	);

	CREATE TABLE IF NOT EXISTS matrix_targets (
		run_id TEXT NOT NULL REFERENCES runs(id),
		col_index INTEGER NOT NULL,
		target TEXT NOT NULL,
		PRIMARY KEY (run_id, col_index)
	);

	CREATE TABLE IF NOT EXISTS matrix_rows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		row_index INTEGER NOT NULL,
		subject TEXT NOT NULL,
		PRIMARY KEY (run_id, row_index)
	);

	CREATE TABLE IF NOT EXISTS engagement_cells (
		run_id TEXT NOT NULL REFERENCES runs(id),
		row_index INTEGER NOT NULL,
		col_index INTEGER NOT NULL,
		engaged BOOLEAN NOT NULL,
		self BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, row_index, col_index)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_feed_items_identity ON feed_items(identity);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records a new running run
func (s *Store) BeginRun(mode, seedPostURL string) (*Run, error) {
	r := &Run{
		ID:          uuid.NewString(),
		Mode:        mode,
		SeedPostURL: seedPostURL,
		Status:      RunRunning,
		StartedAt:   s.now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, mode, seed_post_url, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.Mode, r.SeedPostURL, string(r.Status), r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return r, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil
func (s *Store) FinishRun(id, outputPath string, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}

	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, output_path = ?, finished_at = ?
		WHERE id = ?
	`, string(status), msg, outputPath, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun returns the run with the given id
func (s *Store) GetRun(id string) (*Run, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, mode, seed_post_url, status, error, output_path, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// LatestRun returns the most recently started completed run
func (s *Store) LatestRun() (*Run, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, mode, seed_post_url, status, error, output_path, started_at, finished_at
		FROM runs WHERE status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, string(RunCompleted))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// ListRuns returns up to limit runs, newest first
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, mode, seed_post_url, status, error, output_path, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var status string
	var seed, errMsg, output sql.NullString
	var finished sql.NullTime

	if err := row.Scan(&r.ID, &r.Mode, &seed, &status, &errMsg, &output, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.SeedPostURL = seed.String
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	r.OutputPath = output.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// SaveCollection stores the items of one feed collection
func (s *Store) SaveCollection(runID string, items []types.FeedItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO feed_items (run_id, source, item_key, identity, position, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, source, item_key) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		var observed sql.NullTime
		if !it.ObservedAt.IsZero() {
			observed = sql.NullTime{Time: it.ObservedAt.UTC(), Valid: true}
		}
		if _, err := stmt.Exec(runID, it.Source, it.Key, string(it.Identity), it.Position, observed); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.Key, err)
		}
	}
	return tx.Commit()
}

// LoadCollection returns the items stored for source in position order
func (s *Store) LoadCollection(runID, source string) ([]types.FeedItem, error) {
	rows, err := s.db.Query(`
		SELECT item_key, identity, position, observed_at
		FROM feed_items
		WHERE run_id = ? AND source = ?
		ORDER BY position
	`, runID, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.FeedItem
	for rows.Next() {
		var it types.FeedItem
		var identity string
		var observed sql.NullTime
		if err := rows.Scan(&it.Key, &identity, &it.Position, &observed); err != nil {
			return nil, err
		}
		it.Identity = types.Identity(identity)
		it.Source = source
		if observed.Valid {
			it.ObservedAt = observed.Time
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SaveTargetPost records which post was used for a target
func (s *Store) SaveTargetPost(runID string, rec TargetPostRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO target_posts (run_id, target, post_id, url, pinned, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, target) DO UPDATE SET
			post_id = excluded.post_id,
			url = excluded.url,
			pinned = excluded.pinned,
			error = excluded.error
	`, runID, rec.Target, rec.PostID, rec.URL, rec.Pinned, rec.Error)
	return err
}

// TargetPosts returns the target posts recorded for a run
func (s *Store) TargetPosts(runID string) ([]TargetPostRecord, error) {
	rows, err := s.db.Query(`
		SELECT target, post_id, url, pinned, error
		FROM target_posts WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TargetPostRecord
	for rows.Next() {
		var rec TargetPostRecord
		var postID, url, errMsg sql.NullString
		if err := rows.Scan(&rec.Target, &postID, &url, &rec.Pinned, &errMsg); err != nil {
			return nil, err
		}
		rec.PostID, rec.URL, rec.Error = postID.String, url.String, errMsg.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveMatrix stores the matrix columns, rows and cells for a run
func (s *Store) SaveMatrix(runID string, m *engagement.Matrix) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, t := range m.Targets() {
		if _, err := tx.Exec(`INSERT INTO matrix_targets (run_id, col_index, target) VALUES (?, ?, ?)`,
			runID, i, string(t)); err != nil {
			return fmt.Errorf("failed to insert target: %w", err)
		}
	}

	for ri, row := range m.Rows() {
		if _, err := tx.Exec(`INSERT INTO matrix_rows (run_id, row_index, subject) VALUES (?, ?, ?)`,
			runID, ri, string(row.Subject)); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
		for ci, c := range row.Cells() {
			if _, err := tx.Exec(`
				INSERT INTO engagement_cells (run_id, row_index, col_index, engaged, self)
				VALUES (?, ?, ?, ?, ?)
			`, runID, ri, ci, c.Engaged, c.Self); err != nil {
				return fmt.Errorf("failed to insert cell: %w", err)
			}
		}
	}

	return tx.Commit()
}

// LoadMatrix rebuilds the matrix stored for a run
func (s *Store) LoadMatrix(runID string) (*engagement.Matrix, error) {
	targets, err := s.matrixTargets(runID)
	if err != nil {
		return nil, err
	}

	subjects, err := s.matrixSubjects(runID)
	if err != nil {
		return nil, err
	}

	cells := make([][]engagement.Cell, len(subjects))
	for i := range cells {
		cells[i] = make([]engagement.Cell, len(targets))
		for j, t := range targets {
			cells[i][j].Target = t
		}
	}

	rows, err := s.db.Query(`
		SELECT row_index, col_index, engaged, self
		FROM engagement_cells WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ri, ci int
		var engaged, self bool
		if err := rows.Scan(&ri, &ci, &engaged, &self); err != nil {
			return nil, err
		}
		if ri >= len(subjects) || ci >= len(targets) {
			return nil, fmt.Errorf("cell (%d, %d) outside matrix", ri, ci)
		}
		cells[ri][ci].Engaged = engaged
		cells[ri][ci].Self = self
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]engagement.Row, len(subjects))
	for i, subj := range subjects {
		out[i] = engagement.NewRow(subj, cells[i])
	}
	return engagement.NewMatrix(targets, out)
}

func (s *Store) matrixTargets(runID string) ([]types.Identity, error) {
	return s.identityColumn(`SELECT target FROM matrix_targets WHERE run_id = ? ORDER BY col_index`, runID)
}

func (s *Store) matrixSubjects(runID string) ([]types.Identity, error) {
	return s.identityColumn(`SELECT subject FROM matrix_rows WHERE run_id = ? ORDER BY row_index`, runID)
}

func (s *Store) identityColumn(query, runID string) ([]types.Identity, error) {
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, types.Identity(v))
	}
	return out, rows.Err()
}
