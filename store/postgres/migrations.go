package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tally store.
var Migrations = migrate.NewGroup("tally")

// Schema statements applied by Migrations.
const (
	createAccountsSQL = `
CREATE TABLE IF NOT EXISTS tally_accounts (
    id          TEXT PRIMARY KEY,
    balance     TEXT NOT NULL DEFAULT '0' CHECK (balance ~ '^[0-9]+$'),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

	createSupplySQL = `
CREATE TABLE IF NOT EXISTS tally_supply (
    id              TEXT PRIMARY KEY,
    slot            INT NOT NULL DEFAULT 1 CHECK (slot = 1),
    total           TEXT NOT NULL CHECK (total ~ '^[0-9]+$'),
    initial_holder  TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_supply_slot ON tally_supply (slot);
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
	)
}
