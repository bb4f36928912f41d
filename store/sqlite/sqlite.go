/*
Package sqlite provides the SQLite-backed implementation of the pipeline's
repository interfaces.

PURPOSE:
  Implements every persistence boundary the rules engine depends on
  (cards, clock segments, contracts and their rules, derived lines,
  history, run summaries) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  pipeline.CardRepository:     time cards and their clock segments
  pipeline.ContractRepository: contracts and the ranked rule catalog
  pipeline.HistoryRepository:  a worker's prior derived segments
  pipeline.LineRepository:     routed lines, replaced atomically per card
  pipeline.RunRepository:      ApplyRules invocation summaries

REPLACE SEMANTICS:
  ReplaceDerived runs inside one database transaction: upsert every
  produced line, then delete lines for the card whose ids the reconciler
  did not reuse. A rerun therefore updates records in place and never
  leaves stale lines behind.

KEY TABLES:
  time_cards:      one (worker, event, contract, date) combination
  clock_segments:  the raw worked intervals, never touched by the engine
  time_card_lines: derived lines with the six hour columns
  contracts:       contract thresholds as a JSON document
  contract_rules:  ranked parameter sets, one row per ContractRule
  runs:            one row per ApplyRules invocation

ENCODING:
  Timestamps are RFC3339 TEXT; wall-clock times of day are integer
  seconds since midnight; hour quantities are decimal strings, never
  REAL. Flags serialize as a JSON document.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL so
  readers don't block each other.

USAGE:
  store, err := sqlite.New("./data/timecards.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := &pipeline.Engine{Cards: store, Contracts: store, ...}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - pipeline/pipeline.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
)

// historyLookback bounds the Before query. Nothing in the pipeline reads
// further back than a week of streak plus a week boundary; a month is
// comfortably past both.
const historyLookback = 31 * 24 * time.Hour

// Store implements all repository interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Time cards
	CREATE TABLE IF NOT EXISTS time_cards (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		event_id TEXT NOT NULL DEFAULT '',
		contract_id TEXT NOT NULL,
		date TEXT NOT NULL,
		job_title TEXT NOT NULL DEFAULT '',
		last_run_at TEXT,
		last_error TEXT NOT NULL DEFAULT ''
	);

	-- History queries walk a worker's prior cards by date (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_cards_worker_date
		ON time_cards(worker_id, date);

	-- Clock segments (raw punches; the engine never writes these)
	CREATE TABLE IF NOT EXISTS clock_segments (
		id TEXT PRIMARY KEY,
		time_card_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		date TEXT NOT NULL,
		in_seconds INTEGER NOT NULL,
		out_seconds INTEGER NOT NULL,
		in_at TEXT NOT NULL,
		out_at TEXT NOT NULL,
		flags_json TEXT NOT NULL DEFAULT '{}',
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_clock_segments_card
		ON clock_segments(time_card_id);

	-- Derived lines (rewritten by every run)
	CREATE TABLE IF NOT EXISTS time_card_lines (
		id TEXT PRIMARY KEY,
		time_card_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		role TEXT NOT NULL,
		source_segment_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		in_seconds INTEGER NOT NULL,
		out_seconds INTEGER NOT NULL,
		in_at TEXT NOT NULL,
		out_at TEXT NOT NULL,
		flags_json TEXT NOT NULL DEFAULT '{}',
		credited_hours TEXT NOT NULL DEFAULT '0',
		note TEXT NOT NULL DEFAULT '',
		hours_standard TEXT NOT NULL DEFAULT '0',
		hours_overtime TEXT NOT NULL DEFAULT '0',
		hours_double TEXT NOT NULL DEFAULT '0',
		hours_night TEXT NOT NULL DEFAULT '0',
		hours_meal_penalty TEXT NOT NULL DEFAULT '0',
		hours_drive TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_lines_card
		ON time_card_lines(time_card_id);

	-- Contracts (thresholds as one JSON document)
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Contract rules (one row per ranked parameter set)
	CREATE TABLE IF NOT EXISTS contract_rules (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		sequence INTEGER NOT NULL DEFAULT 0,
		scope TEXT NOT NULL DEFAULT '',
		hour1 TEXT NOT NULL DEFAULT '0',
		hour2 TEXT NOT NULL DEFAULT '0',
		multiplier1 TEXT NOT NULL DEFAULT '0',
		multiplier2 TEXT NOT NULL DEFAULT '0',
		day INTEGER NOT NULL DEFAULT -1,
		ordinal INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		pos INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_contract_rules_contract
		ON contract_rules(contract_id, pos);

	-- Runs (one row per ApplyRules invocation)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		requested INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CARD REPOSITORY (pipeline.CardRepository interface)
// =============================================================================

// Card retrieves a time card by id.
func (s *Store) Card(ctx context.Context, id string) (*segment.TimeCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var card segment.TimeCard
	var date string
	var lastRunAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, worker_id, event_id, contract_id, date, job_title, last_run_at, last_error FROM time_cards WHERE id = ?",
		id,
	).Scan(&card.ID, &card.WorkerID, &card.EventID, &card.ContractID, &date, &card.JobTitle, &lastRunAt, &card.LastError)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time card %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	card.Date, _ = time.Parse(time.RFC3339, date)
	if lastRunAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastRunAt.String)
		card.LastRunAt = &t
	}
	return &card, nil
}

// ClockSegments returns a card's raw punches ordered by start instant.
func (s *Store) ClockSegments(ctx context.Context, timeCardID string) ([]*segment.TimeSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, time_card_id, worker_id, date, in_seconds, out_seconds, in_at, out_at, flags_json, note
		FROM clock_segments
		WHERE time_card_id = ?
		ORDER BY in_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, timeCardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clock segments: %w", err)
	}
	defer rows.Close()

	var segments []*segment.TimeSegment
	for rows.Next() {
		seg, err := scanClockSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func scanClockSegment(rows *sql.Rows) (*segment.TimeSegment, error) {
	var (
		seg                   segment.TimeSegment
		date, inAt, outAt     string
		inSeconds, outSeconds int64
		flagsJSON             string
	)

	err := rows.Scan(&seg.ID, &seg.TimeCardID, &seg.WorkerID, &date,
		&inSeconds, &outSeconds, &inAt, &outAt, &flagsJSON, &seg.Note)
	if err != nil {
		return nil, fmt.Errorf("failed to scan clock segment: %w", err)
	}

	seg.Role = segment.RoleClock
	seg.Date, _ = time.Parse(time.RFC3339, date)
	seg.In = segment.ClockTime(time.Duration(inSeconds) * time.Second)
	seg.Out = segment.ClockTime(time.Duration(outSeconds) * time.Second)
	seg.InAt, _ = time.Parse(time.RFC3339, inAt)
	seg.OutAt, _ = time.Parse(time.RFC3339, outAt)
	if flagsJSON != "" {
		json.Unmarshal([]byte(flagsJSON), &seg.Flags)
	}
	return &seg, nil
}

// StampRun records the last run outcome on the card.
func (s *Store) StampRun(ctx context.Context, timeCardID string, at time.Time, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE time_cards SET last_run_at = ?, last_error = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), runErr, timeCardID,
	)
	return err
}

// =============================================================================
// CONTRACT REPOSITORY (pipeline.ContractRepository interface)
// =============================================================================

// Contract retrieves a contract by id.
func (s *Store) Contract(ctx context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name, configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, config_json FROM contracts WHERE id = ?",
		id,
	).Scan(&name, &configJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contract %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	var c contract.Contract
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		return nil, fmt.Errorf("failed to decode contract %s: %w", id, err)
	}
	c.ID = id
	c.Name = name
	return &c, nil
}

// Rules loads a contract's rule catalog in declaration order.
func (s *Store) Rules(ctx context.Context, contractID string) (contract.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, contract_id, rule_name, sequence, scope,
		       hour1, hour2, multiplier1, multiplier2, day, ordinal, text, enabled
		FROM contract_rules
		WHERE contract_id = ?
		ORDER BY pos ASC
	`

	rows, err := s.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return contract.RuleSet{}, fmt.Errorf("failed to query contract rules: %w", err)
	}
	defer rows.Close()

	var rules []contract.ContractRule
	for rows.Next() {
		var r contract.ContractRule
		var scope, hour1, hour2, mult1, mult2 string
		if err := rows.Scan(&r.ID, &r.ContractID, &r.RuleName, &r.Sequence, &scope,
			&hour1, &hour2, &mult1, &mult2, &r.Day, &r.Ordinal, &r.Text, &r.Enabled); err != nil {
			return contract.RuleSet{}, fmt.Errorf("failed to scan contract rule: %w", err)
		}
		r.Scope = contract.Scope(scope)
		r.Hour1 = mustDecimal(hour1)
		r.Hour2 = mustDecimal(hour2)
		r.Multiplier1 = mustDecimal(mult1)
		r.Multiplier2 = mustDecimal(mult2)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return contract.RuleSet{}, err
	}
	return contract.NewRuleSet(rules...), nil
}

// =============================================================================
// HISTORY REPOSITORY (pipeline.HistoryRepository interface)
// =============================================================================

// Before returns the worker's derived segments from cards dated strictly
// before day, ascending by InAt. The lookback window is bounded; nothing
// in the pipeline reads older history.
func (s *Store) Before(ctx context.Context, workerID string, day time.Time) ([]*segment.TimeSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := segment.Day(day)
	floor := cutoff.Add(-historyLookback)

	query := `
		SELECT l.id, l.time_card_id, tc.worker_id, l.mode, l.role, l.source_segment_id,
		       l.date, l.in_seconds, l.out_seconds, l.in_at, l.out_at,
		       l.flags_json, l.credited_hours, l.note
		FROM time_card_lines l
		JOIN time_cards tc ON tc.id = l.time_card_id
		WHERE tc.worker_id = ? AND tc.date >= ? AND tc.date < ?
		ORDER BY l.in_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workerID,
		floor.Format(time.RFC3339), cutoff.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var segments []*segment.TimeSegment
	for rows.Next() {
		var (
			seg                   segment.TimeSegment
			date, inAt, outAt     string
			inSeconds, outSeconds int64
			flagsJSON, credited   string
		)
		if err := rows.Scan(&seg.ID, &seg.TimeCardID, &seg.WorkerID, &seg.Mode, &seg.Role,
			&seg.SourceSegmentID, &date, &inSeconds, &outSeconds, &inAt, &outAt,
			&flagsJSON, &credited, &seg.Note); err != nil {
			return nil, fmt.Errorf("failed to scan history line: %w", err)
		}
		seg.Date, _ = time.Parse(time.RFC3339, date)
		seg.In = segment.ClockTime(time.Duration(inSeconds) * time.Second)
		seg.Out = segment.ClockTime(time.Duration(outSeconds) * time.Second)
		seg.InAt, _ = time.Parse(time.RFC3339, inAt)
		seg.OutAt, _ = time.Parse(time.RFC3339, outAt)
		if flagsJSON != "" {
			json.Unmarshal([]byte(flagsJSON), &seg.Flags)
		}
		seg.CreditedHours = mustDecimal(credited)
		segments = append(segments, &seg)
	}
	return segments, rows.Err()
}

// =============================================================================
// LINE REPOSITORY (pipeline.LineRepository interface)
// =============================================================================

// DerivedLines returns a card's persisted lines.
func (s *Store) DerivedLines(ctx context.Context, timeCardID string) ([]pipeline.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, time_card_id, mode, role, source_segment_id,
		       date, in_seconds, out_seconds, in_at, out_at,
		       flags_json, credited_hours, note,
		       hours_standard, hours_overtime, hours_double,
		       hours_night, hours_meal_penalty, hours_drive
		FROM time_card_lines
		WHERE time_card_id = ?
		ORDER BY in_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, timeCardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []pipeline.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanLine(rows *sql.Rows) (pipeline.Line, error) {
	var (
		l                     pipeline.Line
		date, inAt, outAt     string
		inSeconds, outSeconds int64
		flagsJSON, credited   string
		hours                 [pipeline.NumColumns]string
	)

	err := rows.Scan(&l.ID, &l.TimeCardID, &l.Mode, &l.Role, &l.SourceSegmentID,
		&date, &inSeconds, &outSeconds, &inAt, &outAt,
		&flagsJSON, &credited, &l.Note,
		&hours[0], &hours[1], &hours[2], &hours[3], &hours[4], &hours[5])
	if err != nil {
		return l, fmt.Errorf("failed to scan line: %w", err)
	}

	l.Date, _ = time.Parse(time.RFC3339, date)
	l.In = segment.ClockTime(time.Duration(inSeconds) * time.Second)
	l.Out = segment.ClockTime(time.Duration(outSeconds) * time.Second)
	l.InAt, _ = time.Parse(time.RFC3339, inAt)
	l.OutAt, _ = time.Parse(time.RFC3339, outAt)
	if flagsJSON != "" {
		json.Unmarshal([]byte(flagsJSON), &l.Flags)
	}
	l.CreditedHours = mustDecimal(credited)
	for i := range hours {
		l.Hours[i] = mustDecimal(hours[i])
	}
	return l, nil
}

// ReplaceDerived swaps a card's derived lines inside one database
// transaction: upsert everything produced, then delete the ids the
// reconciler did not reuse.
func (s *Store) ReplaceDerived(ctx context.Context, timeCardID string, lines []pipeline.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	keep := make([]any, 0, len(lines)+1)
	keep = append(keep, timeCardID)
	for _, l := range lines {
		if err := upsertLine(ctx, sqlTx, l); err != nil {
			return err
		}
		keep = append(keep, l.ID)
	}

	del := "DELETE FROM time_card_lines WHERE time_card_id = ?"
	if len(lines) > 0 {
		del += " AND id NOT IN (?" + repeatPlaceholder(len(lines)-1) + ")"
	}
	if _, err := sqlTx.ExecContext(ctx, del, keep...); err != nil {
		return fmt.Errorf("failed to delete stale lines: %w", err)
	}

	return sqlTx.Commit()
}

func upsertLine(ctx context.Context, tx *sql.Tx, l pipeline.Line) error {
	flagsJSON, _ := json.Marshal(l.Flags)

	query := `
		INSERT INTO time_card_lines
		(id, time_card_id, mode, role, source_segment_id,
		 date, in_seconds, out_seconds, in_at, out_at,
		 flags_json, credited_hours, note,
		 hours_standard, hours_overtime, hours_double,
		 hours_night, hours_meal_penalty, hours_drive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time_card_id = excluded.time_card_id,
			mode = excluded.mode,
			role = excluded.role,
			source_segment_id = excluded.source_segment_id,
			date = excluded.date,
			in_seconds = excluded.in_seconds,
			out_seconds = excluded.out_seconds,
			in_at = excluded.in_at,
			out_at = excluded.out_at,
			flags_json = excluded.flags_json,
			credited_hours = excluded.credited_hours,
			note = excluded.note,
			hours_standard = excluded.hours_standard,
			hours_overtime = excluded.hours_overtime,
			hours_double = excluded.hours_double,
			hours_night = excluded.hours_night,
			hours_meal_penalty = excluded.hours_meal_penalty,
			hours_drive = excluded.hours_drive
	`

	_, err := tx.ExecContext(ctx, query,
		l.ID, l.TimeCardID, string(l.Mode), string(l.Role), l.SourceSegmentID,
		l.Date.Format(time.RFC3339),
		int64(l.In.Duration()/time.Second),
		int64(l.Out.Duration()/time.Second),
		l.InAt.Format(time.RFC3339),
		l.OutAt.Format(time.RFC3339),
		string(flagsJSON),
		l.CreditedHours.String(),
		l.Note,
		l.Hours[0].String(), l.Hours[1].String(), l.Hours[2].String(),
		l.Hours[3].String(), l.Hours[4].String(), l.Hours[5].String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert line: %w", err)
	}
	return nil
}

// =============================================================================
// RUN REPOSITORY (pipeline.RunRepository interface)
// =============================================================================

// SaveRun records one ApplyRules invocation.
func (s *Store) SaveRun(ctx context.Context, run pipeline.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (id, started_at, completed_at, requested, succeeded, failed, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.CompletedAt.UTC().Format(time.RFC3339),
		run.Requested, run.Succeeded, run.Failed, run.Message,
	)
	return err
}

// =============================================================================
// SEEDING - Writes the engine itself never performs
// =============================================================================

// SaveCard inserts or updates a time card.
func (s *Store) SaveCard(ctx context.Context, card *segment.TimeCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO time_cards (id, worker_id, event_id, contract_id, date, job_title, last_error)
		VALUES (?, ?, ?, ?, ?, ?, '')
		ON CONFLICT(id) DO UPDATE SET
			worker_id = excluded.worker_id,
			event_id = excluded.event_id,
			contract_id = excluded.contract_id,
			date = excluded.date,
			job_title = excluded.job_title
	`

	_, err := s.db.ExecContext(ctx, query,
		card.ID, card.WorkerID, card.EventID, card.ContractID,
		segment.Day(card.Date).Format(time.RFC3339), card.JobTitle,
	)
	return err
}

// SaveClockSegment inserts or updates a raw punch.
func (s *Store) SaveClockSegment(ctx context.Context, seg *segment.TimeSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flagsJSON, _ := json.Marshal(seg.Flags)

	query := `
		INSERT INTO clock_segments
		(id, time_card_id, worker_id, date, in_seconds, out_seconds, in_at, out_at, flags_json, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			in_seconds = excluded.in_seconds,
			out_seconds = excluded.out_seconds,
			in_at = excluded.in_at,
			out_at = excluded.out_at,
			flags_json = excluded.flags_json,
			note = excluded.note
	`

	_, err := s.db.ExecContext(ctx, query,
		seg.ID, seg.TimeCardID, seg.WorkerID,
		segment.Day(seg.Date).Format(time.RFC3339),
		int64(seg.In.Duration()/time.Second),
		int64(seg.Out.Duration()/time.Second),
		seg.InAt.Format(time.RFC3339),
		seg.OutAt.Format(time.RFC3339),
		string(flagsJSON), seg.Note,
	)
	return err
}

// SaveContract stores a contract's thresholds as one JSON document.
func (s *Store) SaveContract(ctx context.Context, c *contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode contract: %w", err)
	}

	query := `
		INSERT INTO contracts (id, name, config_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.Name, string(configJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SaveRules replaces a contract's rule catalog, preserving the given order.
func (s *Store) SaveRules(ctx context.Context, contractID string, rules []contract.ContractRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM contract_rules WHERE contract_id = ?", contractID); err != nil {
		return err
	}

	query := `
		INSERT INTO contract_rules
		(id, contract_id, rule_name, sequence, scope,
		 hour1, hour2, multiplier1, multiplier2, day, ordinal, text, enabled, pos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for pos, r := range rules {
		_, err := sqlTx.ExecContext(ctx, query,
			r.ID, contractID, r.RuleName, r.Sequence, string(r.Scope),
			r.Hour1.String(), r.Hour2.String(),
			r.Multiplier1.String(), r.Multiplier2.String(),
			r.Day, r.Ordinal, r.Text, r.Enabled, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contract rule: %w", err)
		}
	}

	return sqlTx.Commit()
}

// StaleCards returns ids of cards that have never been run, oldest first.
// The auto-apply scheduler drains this list.
func (s *Store) StaleCards(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id FROM time_cards
		WHERE last_run_at IS NULL
		ORDER BY worker_id ASC, date ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale cards: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"time_card_lines", "clock_segments", "time_cards", "contract_rules", "contracts", "runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
