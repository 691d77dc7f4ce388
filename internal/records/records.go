package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/studylog/internal/db"
	"github.com/example/studylog/internal/internaltypes"
)

// DateLayout is the ISO 8601 calendar date stored in records.date.
const DateLayout = "2006-01-02"

type Record struct {
	ID      int64
	UserID  int64
	Date    string
	Minutes int
}

func (r Record) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("%w: user_id required", internaltypes.ErrInvalidInput)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", internaltypes.ErrInvalidInput)
	}
	if r.Minutes < 0 {
		return fmt.Errorf("%w: minutes must not be negative", internaltypes.ErrInvalidInput)
	}
	return nil
}

// ParseDuration turns the hours and minutes form fields into total minutes.
// Blank fields count as zero.
func ParseDuration(hours, minutes string) (int, error) {
	h, err := parseField("hours", hours)
	if err != nil {
		return 0, err
	}
	m, err := parseField("minutes", minutes)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func parseField(name, v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number", internaltypes.ErrInvalidInput, name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", internaltypes.ErrInvalidInput, name)
	}
	// keeps hours*60 well inside int range
	if n > 1_000_000 {
		return 0, fmt.Errorf("%w: %s is too large", internaltypes.ErrInvalidInput, name)
	}
	return n, nil
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Upsert stores minutes for (userID, date), overwriting an existing row.
// The statement is a single atomic insert-or-update; concurrent writers to
// the same key resolve last-write-wins.
func (r *Repo) Upsert(ctx context.Context, userID int64, date string, minutes int) error {
	rec := Record{UserID: userID, Date: date, Minutes: minutes}
	if err := rec.Validate(); err != nil {
		return err
	}

	query, args, err := r.db.Builder().
		Insert("records").
		Columns("user_id", "date", "minutes").
		Values(rec.UserID, rec.Date, rec.Minutes).
		Suffix("ON CONFLICT (user_id, date) DO UPDATE SET minutes = excluded.minutes").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// ListByUser returns every record owned by userID, most recent date first.
func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Record, error) {
	query, args, err := r.db.Builder().
		Select("id", "user_id", "date", "minutes").
		From("records").
		Where("user_id = ?", userID).
		OrderBy("date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Minutes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, userID int64, date string) (Record, error) {
	query, args, err := r.db.Builder().
		Select("id", "user_id", "date", "minutes").
		From("records").
		Where("user_id = ? AND date = ?", userID, date).
		ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build get: %w", err)
	}

	var rec Record
	err = r.db.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Minutes)
	if err != nil {
		return Record{}, db.WrapNotFound(err)
	}
	return rec, nil
}
