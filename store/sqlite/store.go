package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/supply"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables, indexes and triggers using the grove
// orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tally/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Supply Store ====================

// CreateSupply inserts the supply row. The tally_supply_genesis trigger
// credits the initial holder within the same statement.
func (s *Store) CreateSupply(ctx context.Context, sup *supply.Supply, holder *account.Account) error {
	if err := sup.CheckGenesis(holder); err != nil {
		return err
	}

	if _, err := s.GetSupply(ctx); err == nil {
		return tally.ErrAlreadyInitialized
	} else if !errors.Is(err, tally.ErrNotInitialized) {
		return err
	}

	if _, err := s.sdb.NewInsert(toSupplyModel(sup)).Exec(ctx); err != nil {
		// Lost a race on the slot index.
		if _, gerr := s.GetSupply(ctx); gerr == nil {
			return tally.ErrAlreadyInitialized
		}
		return fmt.Errorf("tally/sqlite: create supply: %w", err)
	}
	return nil
}

func (s *Store) GetSupply(ctx context.Context) (*supply.Supply, error) {
	m := new(supplyModel)
	err := s.sdb.NewSelect(m).
		Where("slot = ?", 1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrNotInitialized
		}
		return nil, err
	}
	return fromSupplyModel(m)
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, accountID account.ID) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", tally.ErrAccountNotFound, accountID)
		}
		return nil, err
	}
	return fromAccountModel(m)
}

// PutAccounts upserts every account with one multi-row statement.
func (s *Store) PutAccounts(ctx context.Context, accounts ...*account.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	models := toAccountModels(accounts)
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.sdb.NewSelect(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
