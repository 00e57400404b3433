package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"Guanfancy/internal/model"
)

// SQLiteStore persists intakes to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS medication_intakes (
			id                        INTEGER PRIMARY KEY AUTOINCREMENT,
			scheduled_time_epoch      INTEGER NOT NULL,
			actual_time_epoch         INTEGER,
			feedback_type             TEXT,
			feedback_time_epoch       INTEGER,
			next_scheduled_time_epoch INTEGER,
			is_completed              INTEGER NOT NULL DEFAULT 0,
			source                    TEXT NOT NULL DEFAULT 'SCHEDULED'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intakes_scheduled ON medication_intakes(scheduled_time_epoch)`,
		`CREATE INDEX IF NOT EXISTS idx_intakes_completed ON medication_intakes(is_completed, actual_time_epoch)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

const selectColumns = `SELECT id, scheduled_time_epoch, actual_time_epoch, feedback_type,
	feedback_time_epoch, next_scheduled_time_epoch, is_completed, source
	FROM medication_intakes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntake(row rowScanner) (*model.Intake, error) {
	var (
		in                           model.Intake
		scheduled                    int64
		actual, fbTime, nextSchedule sql.NullInt64
		feedback                     sql.NullString
		completed                    int
		source                       string
	)
	if err := row.Scan(&in.ID, &scheduled, &actual, &feedback, &fbTime, &nextSchedule, &completed, &source); err != nil {
		return nil, err
	}
	in.ScheduledTime = time.UnixMilli(scheduled)
	in.ActualTime = fromEpoch(actual)
	in.FeedbackTime = fromEpoch(fbTime)
	in.NextScheduledTime = fromEpoch(nextSchedule)
	in.IsCompleted = completed != 0
	in.Source = model.ParseIntakeSource(source)
	if feedback.Valid {
		f, err := model.ParseFeedbackType(feedback.String)
		if err != nil {
			return nil, fmt.Errorf("intake %d: %w", in.ID, err)
		}
		in.Feedback = &f
	}
	return &in, nil
}

func (s *SQLiteStore) queryList(ctx context.Context, query string, args ...any) ([]model.Intake, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Intake
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (*model.Intake, error) {
	in, err := scanIntake(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return in, err
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.Intake, error) {
	return s.queryList(ctx, selectColumns+` ORDER BY scheduled_time_epoch DESC`)
}

func (s *SQLiteStore) Between(ctx context.Context, start, end time.Time) ([]model.Intake, error) {
	return s.queryList(ctx, selectColumns+`
		WHERE scheduled_time_epoch >= ? AND scheduled_time_epoch <= ?
		ORDER BY scheduled_time_epoch ASC`, start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*model.Intake, error) {
	in, err := s.queryOne(ctx, selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("get intake %d: %w", id, ErrNotFound)
	}
	return in, nil
}

func (s *SQLiteStore) NextScheduled(ctx context.Context) (*model.Intake, error) {
	return s.queryOne(ctx, selectColumns+` WHERE is_completed = 0 ORDER BY scheduled_time_epoch ASC LIMIT 1`)
}

func (s *SQLiteStore) LastCompleted(ctx context.Context) (*model.Intake, error) {
	return s.queryOne(ctx, selectColumns+`
		WHERE is_completed = 1 AND actual_time_epoch IS NOT NULL AND source = ?
		ORDER BY actual_time_epoch DESC LIMIT 1`, string(model.SourceScheduled))
}

// Insert adds the intake. A non-zero ID replaces the existing row.
func (s *SQLiteStore) Insert(ctx context.Context, in *model.Intake) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := in.Source
	if source == "" {
		source = model.SourceScheduled
	}
	args := []any{
		in.ScheduledTime.UnixMilli(), toEpoch(in.ActualTime), feedbackName(in.Feedback),
		toEpoch(in.FeedbackTime), toEpoch(in.NextScheduledTime), boolInt(in.IsCompleted), string(source),
	}

	var (
		res sql.Result
		err error
	)
	if in.ID != 0 {
		res, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO medication_intakes
			(id, scheduled_time_epoch, actual_time_epoch, feedback_type, feedback_time_epoch,
			 next_scheduled_time_epoch, is_completed, source)
			VALUES (?,?,?,?,?,?,?,?)`, append([]any{in.ID}, args...)...)
	} else {
		res, err = s.db.ExecContext(ctx, `INSERT INTO medication_intakes
			(scheduled_time_epoch, actual_time_epoch, feedback_type, feedback_time_epoch,
			 next_scheduled_time_epoch, is_completed, source)
			VALUES (?,?,?,?,?,?,?)`, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("insert intake: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) Update(ctx context.Context, in *model.Intake) error {
	return s.exec(ctx, in.ID, `UPDATE medication_intakes SET
		scheduled_time_epoch = ?, actual_time_epoch = ?, feedback_type = ?, feedback_time_epoch = ?,
		next_scheduled_time_epoch = ?, is_completed = ?, source = ?
		WHERE id = ?`,
		in.ScheduledTime.UnixMilli(), toEpoch(in.ActualTime), feedbackName(in.Feedback),
		toEpoch(in.FeedbackTime), toEpoch(in.NextScheduledTime), boolInt(in.IsCompleted),
		string(model.ParseIntakeSource(string(in.Source))), in.ID)
}

func (s *SQLiteStore) MarkTaken(ctx context.Context, id int64, actual time.Time) error {
	return s.exec(ctx, id, `UPDATE medication_intakes SET actual_time_epoch = ?, is_completed = 1 WHERE id = ?`,
		actual.UnixMilli(), id)
}

func (s *SQLiteStore) UpdateScheduledTime(ctx context.Context, id int64, scheduled time.Time) error {
	return s.exec(ctx, id, `UPDATE medication_intakes SET scheduled_time_epoch = ? WHERE id = ?`,
		scheduled.UnixMilli(), id)
}

func (s *SQLiteStore) SubmitFeedback(ctx context.Context, id int64, feedback model.FeedbackType, at time.Time, nextScheduled *time.Time) error {
	return s.exec(ctx, id, `UPDATE medication_intakes
		SET feedback_type = ?, feedback_time_epoch = ?, next_scheduled_time_epoch = ?
		WHERE id = ?`, feedback.String(), at.UnixMilli(), toEpoch(nextScheduled), id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, id, `DELETE FROM medication_intakes WHERE id = ?`, id)
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM medication_intakes`)
	return err
}

// exec runs a single-row write and reports ErrNotFound when nothing matched.
func (s *SQLiteStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("intake %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func toEpoch(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromEpoch(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func feedbackName(f *model.FeedbackType) any {
	if f == nil {
		return nil
	}
	return f.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
