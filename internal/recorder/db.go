// Package recorder persists every model request/response pair so runs can
// be audited, searched and replayed without a live model.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
	_ "modernc.org/sqlite"
)

// CallRow is one recorded request/response pair.
type CallRow struct {
	ID        int64
	RunID     string
	Turn      int
	Attempt   int
	Model     string
	Request   []engine.Turn
	Functions []engine.FunctionSchema
	Options   engine.CompletionOptions
	Response  engine.LLMResponse
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// RunSummary aggregates the calls of one run.
type RunSummary struct {
	RunID   string
	Model   string
	Calls   int
	Errors  int
	FirstAt time.Time
	LastAt  time.Time
}

// DB stores call records in SQLite.
type DB struct {
	db    *sql.DB
	index *SearchIndex
}

// NewDB opens (or creates) the call log at dbPath.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	// WAL lets readers (runs list) work while a run is writing.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers well
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// WithIndex makes Record also feed idx.
func (d *DB) WithIndex(idx *SearchIndex) *DB {
	d.index = idx
	return d
}

// Close closes the database and the attached index.
func (d *DB) Close() error {
	if d.index != nil {
		if err := d.index.Close(); err != nil {
			d.db.Close()
			return err
		}
	}
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS calls (
		call_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		turn        INTEGER NOT NULL,
		attempt     INTEGER NOT NULL,
		model       TEXT NOT NULL,
		request     TEXT NOT NULL,
		functions   TEXT NOT NULL,
		options     TEXT NOT NULL,
		response    TEXT NOT NULL,
		error       TEXT,
		duration_ms INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calls_run ON calls(run_id, call_id);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Record implements engine.Recorder.
func (d *DB) Record(ctx context.Context, rec engine.CallRecord) error {
	request, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	functions, err := json.Marshal(rec.Functions)
	if err != nil {
		return fmt.Errorf("failed to marshal functions: %w", err)
	}
	options, err := json.Marshal(rec.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	response, err := json.Marshal(rec.Response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	var errText sql.NullString
	if rec.Err != nil {
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO calls (run_id, turn, attempt, model, request, functions, options, response, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := d.db.ExecContext(ctx, query, rec.RunID, rec.Turn, rec.Attempt, rec.Model,
		string(request), string(functions), string(options), string(response), errText,
		rec.Duration.Milliseconds(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}

	if d.index != nil && rec.Err == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read call id: %w", err)
		}
		if err := d.index.IndexCall(id, rec); err != nil {
			return fmt.Errorf("failed to index call: %w", err)
		}
	}
	return nil
}

// ListRuns returns one summary per run, most recent first.
func (d *DB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	query := `
		SELECT run_id, MAX(model), COUNT(*), COUNT(error), MIN(created_at), MAX(created_at)
		FROM calls
		GROUP BY run_id
		ORDER BY MAX(created_at) DESC, run_id
	`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var first, last int64
		if err := rows.Scan(&r.RunID, &r.Model, &r.Calls, &r.Errors, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.FirstAt = time.UnixMilli(first)
		r.LastAt = time.UnixMilli(last)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Calls returns the calls of a run in the order they were made.
func (d *DB) Calls(ctx context.Context, runID string) ([]CallRow, error) {
	query := `
		SELECT call_id, run_id, turn, attempt, model, request, functions, options, response, error, duration_ms, created_at
		FROM calls
		WHERE run_id = ?
		ORDER BY call_id
	`
	rows, err := d.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var calls []CallRow
	for rows.Next() {
		var c CallRow
		var request, functions, options, response string
		var errText sql.NullString
		var durationMs, createdAt int64
		err := rows.Scan(&c.ID, &c.RunID, &c.Turn, &c.Attempt, &c.Model, &request, &functions, &options, &response, &errText, &durationMs, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		if err := json.Unmarshal([]byte(request), &c.Request); err != nil {
			return nil, fmt.Errorf("call %d: bad request json: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(functions), &c.Functions); err != nil {
			return nil, fmt.Errorf("call %d: bad functions json: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(options), &c.Options); err != nil {
			return nil, fmt.Errorf("call %d: bad options json: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(response), &c.Response); err != nil {
			return nil, fmt.Errorf("call %d: bad response json: %w", c.ID, err)
		}
		if errText.Valid {
			c.Error = errText.String
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		c.CreatedAt = time.UnixMilli(createdAt)
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}
	return calls, nil
}
