package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/vault/asset"
)

var ErrNotFound = errors.New("operation not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Record(e Entry) error {
	_, err := j.db.Exec(`
		INSERT INTO operations
		(op_id, time, kind, account, requested, amount, shares, total_shares, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OpID, e.Time.UTC(), string(e.Kind), string(e.Account),
		asset.Format(e.Requested), asset.Format(e.Amount),
		asset.Format(e.Shares), asset.Format(e.TotalShares),
		string(e.Status), e.Error,
	)
	return err
}

const selectEntry = `
		SELECT op_id, time, kind, account, requested, amount, shares, total_shares, status, error
		FROM operations`

// Get returns a single entry by operation ID.
func (j *SQLite) Get(opID string) (Entry, error) {
	row := j.db.QueryRow(selectEntry+` WHERE op_id = ?`, opID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, opID)
		}
		return Entry{}, err
	}
	return e, nil
}

// ListByAccount returns every entry for account in time order.
func (j *SQLite) ListByAccount(account asset.Address) ([]Entry, error) {
	return j.list(selectEntry+` WHERE account = ? ORDER BY time ASC, op_id ASC`, string(account))
}

// ListBetween returns entries whose time is within [start, end).
func (j *SQLite) ListBetween(start, end time.Time) ([]Entry, error) {
	return j.list(selectEntry+` WHERE time >= ? AND time < ? ORDER BY time ASC, op_id ASC`, start.UTC(), end.UTC())
}

// List returns every entry in time order.
func (j *SQLite) List() ([]Entry, error) {
	return j.list(selectEntry + ` ORDER BY time ASC, op_id ASC`)
}

func (j *SQLite) list(query string, args ...any) ([]Entry, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                                   Entry
		kind, account, status               string
		requested, amount, shares, totalStr string
	)
	if err := s.Scan(&e.OpID, &e.Time, &kind, &account, &requested, &amount, &shares, &totalStr, &status, &e.Error); err != nil {
		return Entry{}, err
	}
	e.Kind = Kind(kind)
	e.Account = asset.Address(account)
	e.Status = Status(status)

	for _, f := range []struct {
		dst *asset.Amount
		src string
	}{
		{&e.Requested, requested},
		{&e.Amount, amount},
		{&e.Shares, shares},
		{&e.TotalShares, totalStr},
	} {
		v, err := strconv.ParseUint(f.src, 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("operation %s: bad amount %q: %w", e.OpID, f.src, err)
		}
		*f.dst = v
	}
	return e, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
