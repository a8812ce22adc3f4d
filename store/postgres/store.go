package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/supply"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
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

// genesisSQL inserts the supply and credits the holder in one statement.
// When the slot is already taken the supply insert returns no row, the
// account insert selects nothing, and the outer RETURNING is empty.
const genesisSQL = `
WITH sup AS (
    INSERT INTO tally_supply (id, slot, total, initial_holder, created_at, updated_at)
    VALUES ($1, 1, $2, $3, $4, $5)
    ON CONFLICT (slot) DO NOTHING
    RETURNING initial_holder, total, created_at, updated_at
)
INSERT INTO tally_accounts (id, balance, created_at, updated_at)
SELECT initial_holder, total, created_at, updated_at FROM sup
ON CONFLICT (id) DO UPDATE SET
    balance = EXCLUDED.balance,
    updated_at = EXCLUDED.updated_at
RETURNING id`

func (s *Store) CreateSupply(ctx context.Context, sup *supply.Supply, holder *account.Account) error {
	if err := sup.CheckGenesis(holder); err != nil {
		return err
	}

	m := toSupplyModel(sup)
	var credited string
	err := s.pg.NewRaw(genesisSQL,
		m.ID, m.Total, m.InitialHolder, m.CreatedAt, m.UpdatedAt,
	).Scan(ctx, &credited)
	if err != nil {
		if isNoRows(err) {
			return tally.ErrAlreadyInitialized
		}
		return fmt.Errorf("tally/postgres: create supply: %w", err)
	}
	return nil
}

func (s *Store) GetSupply(ctx context.Context) (*supply.Supply, error) {
	m := new(supplyModel)
	err := s.pg.NewSelect(m).
		Where("slot = $1", 1).
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
	err := s.pg.NewSelect(m).
		Where("id = $1", accountID.String()).
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
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.pg.NewSelect(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// Byte order, independent of the database locale.
	q = q.OrderExpr(`id COLLATE "C" ASC`)

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
