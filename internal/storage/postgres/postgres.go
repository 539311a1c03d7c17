// internal/storage/postgres/postgres.go

// Package postgres stores circulation records in PostgreSQL.
//
// The schema backs the engine's invariants with partial unique indexes: one
// open loan per barcode, one WAITING reservation per barcode and one fine per
// loan. Violations surface as errs conflicts.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/errs"
	"libralend/internal/eventstore"
	"libralend/internal/membership"
)

//go:embed schema.sql
var schema string

const (
	tableItems        = "items"
	tableMembers      = "members"
	tableLoans        = "loans"
	tableFines        = "fines"
	tableReservations = "reservations"

	uniqueViolation = "23505"
)

// conflictCodes maps unique constraints to the failure they represent.
var conflictCodes = map[string]errs.Code{
	"loans_one_open_per_barcode":          errs.CodeItemUnavailable,
	"reservations_one_waiting_per_barcode": errs.CodeAlreadyReserved,
}

var dialect = goqu.Dialect("postgres")

type Store struct {
	db *sqlx.DB
}

var (
	_ catalog.Catalog              = (*Store)(nil)
	_ membership.Directory         = (*Store)(nil)
	_ circulation.LoanStore        = (*Store)(nil)
	_ circulation.FineStore        = (*Store)(nil)
	_ circulation.ReservationStore = (*Store)(nil)
)

// Connect opens a pooled connection to dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the circulation and event tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, eventstore.Schema); err != nil {
		return fmt.Errorf("failed to apply event store schema: %w", err)
	}
	return nil
}

// Stores returns s wired as every collaborator of the circulation engine.
func (s *Store) Stores() circulation.Stores {
	return circulation.Stores{
		Catalog:      s,
		Directory:    s,
		Loans:        s,
		Fines:        s,
		Reservations: s,
	}
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (s *Store) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.GetContext(ctx, dest, query, args...)
}

func (s *Store) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

// exec runs a write and reports how many rows it touched.
func (s *Store) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an insert, translating unique violations into conflicts.
func (s *Store) insert(ctx context.Context, ds *goqu.InsertDataset, what string) error {
	if _, err := s.exec(ctx, ds.Prepared(true)); err != nil {
		return translate(err, "failed to insert %s", what)
	}
	return nil
}

// update runs an update and reports a missing row as notFound.
func (s *Store) update(ctx context.Context, ds *goqu.UpdateDataset, notFound error, what string) error {
	n, err := s.exec(ctx, ds.Prepared(true))
	if err != nil {
		return translate(err, "failed to update %s", what)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func translate(err error, format string, args ...any) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		code, ok := conflictCodes[pqErr.Constraint]
		if !ok {
			code = errs.CodeAlreadyExists
		}
		return errs.NewConflictErrorWithCause(code, err, format, args...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
