package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteBook is a ledger.Book backed by a SQLite database that lives only as
// long as the process holds it open. Category totals are updated in the same
// transaction as the entry they account for.
type SQLiteBook struct {
	db  *sql.DB
	dsn string
}

var _ ledger.Book = (*SQLiteBook)(nil)

// SessionDSN returns a DSN for a private in-memory database. The database
// disappears when the last connection to it closes.
func SessionDSN() string {
	return "file:ledger-" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
}

// OpenSession opens a fresh, empty in-memory ledger.
func OpenSession(ctx context.Context) (*SQLiteBook, error) {
	return Open(ctx, SessionDSN())
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*SQLiteBook, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One pinned connection keeps the in-memory database alive and
	// serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteBook{db: db, dsn: dsn}, nil
}

func (b *SQLiteBook) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (b *SQLiteBook) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLiteBook) AddExpense(ctx context.Context, name string, category core.Category, amount core.Money) (core.Entry, error) {
	d := core.Draft{Name: name, Category: category, Amount: amount}
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}
	d = d.Normalized()

	var entry core.Entry
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (name, category, amount) VALUES (?, ?, ?)`,
			d.Name, string(d.Category), d.Amount.Amount.String())
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read expense id: %w", err)
		}
		if err := adjustTotal(ctx, tx, d.Category, d.Amount.Amount); err != nil {
			return err
		}
		entry = core.Entry{ID: id, Name: d.Name, Category: d.Category, Amount: d.Amount}
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", entry.ID,
		"category", entry.Category,
		"amount", entry.Amount.String())
	return entry, nil
}

func (b *SQLiteBook) RemoveExpense(ctx context.Context, id int64) (core.Entry, bool, error) {
	var (
		removed core.Entry
		found   bool
	)
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id, name, category, amount FROM expenses WHERE id = ?`, id)
		e, err := scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		if err := adjustTotal(ctx, tx, e.Category, e.Amount.Amount.Neg()); err != nil {
			return err
		}
		removed, found = e, true
		return nil
	})
	if err != nil {
		return core.Entry{}, false, err
	}
	if found {
		slog.DebugContext(ctx, "Expense removed from SQLite", "id", id)
	}
	return removed, found, nil
}

func (b *SQLiteBook) Entries(ctx context.Context) ([]core.Entry, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, category, amount FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (b *SQLiteBook) CategoryTotals(ctx context.Context) (core.Totals, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT category, amount FROM category_totals ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list category totals: %w", err)
	}
	defer rows.Close()

	totals := core.NewTotals()
	for rows.Next() {
		var cat, amount string
		if err := rows.Scan(&cat, &amount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse total for %s: %w", cat, err)
		}
		totals[core.Category(cat)] = core.NewMoney(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

func (b *SQLiteBook) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// adjustTotal adds delta to the running total of category. Totals are kept
// as decimal text so SQLite's float arithmetic never touches them.
func adjustTotal(ctx context.Context, tx *sql.Tx, category core.Category, delta decimal.Decimal) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT amount FROM category_totals WHERE category = ?`, string(category)).Scan(&current)
	if err != nil {
		return fmt.Errorf("read total for %s: %w", category, err)
	}
	d, err := decimal.NewFromString(current)
	if err != nil {
		return fmt.Errorf("parse total for %s: %w", category, err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE category_totals SET amount = ? WHERE category = ?`,
		d.Add(delta).String(), string(category))
	if err != nil {
		return fmt.Errorf("update total for %s: %w", category, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.Entry, error) {
	var (
		e           core.Entry
		cat, amount string
	)
	if err := s.Scan(&e.ID, &e.Name, &cat, &amount); err != nil {
		return core.Entry{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	e.Category = core.Category(cat)
	e.Amount = core.NewMoney(d)
	return e, nil
}
