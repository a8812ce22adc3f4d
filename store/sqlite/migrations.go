package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tally store (SQLite).
var Migrations = migrate.NewGroup("tally")

// Schema statements applied by Migrations.
const (
	createAccountsSQL = `
CREATE TABLE IF NOT EXISTS tally_accounts (
    id          TEXT PRIMARY KEY,
    balance     TEXT NOT NULL DEFAULT '0',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

	createSupplySQL = `
CREATE TABLE IF NOT EXISTS tally_supply (
    id              TEXT PRIMARY KEY,
    slot            INTEGER NOT NULL DEFAULT 1 CHECK (slot = 1),
    total           TEXT NOT NULL,
    initial_holder  TEXT NOT NULL,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_supply_slot ON tally_supply (slot);
`

	genesisTriggerSQL = `
CREATE TRIGGER IF NOT EXISTS tally_supply_genesis
AFTER INSERT ON tally_supply
BEGIN
    INSERT INTO tally_accounts (id, balance, created_at, updated_at)
    VALUES (NEW.initial_holder, NEW.total, NEW.created_at, NEW.updated_at)
    ON CONFLICT (id) DO UPDATE SET
        balance = excluded.balance,
        updated_at = excluded.updated_at;
END;
`
)

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_accounts",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createAccountsSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_supply",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createSupplySQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_supply`)
				return err
			},
		},
		&migrate.Migration{
			// Crediting the holder inside the supply insert makes genesis a
			// single statement.
			Name:    "create_tally_genesis_trigger",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, genesisTriggerSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TRIGGER IF EXISTS tally_supply_genesis`)
				return err
			},
		},
	)
}
