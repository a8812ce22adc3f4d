package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/types"
)

// ==================== Supply models ====================

type supplyModel struct {
	grove.BaseModel `grove:"table:tally_supply"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	Slot          int       `grove:"slot"           bson:"slot"`
	Total         string    `grove:"total"          bson:"total"`
	InitialHolder string    `grove:"initial_holder" bson:"initial_holder"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"     bson:"updated_at"`
}

func toSupplyModel(s *supply.Supply) *supplyModel {
	return &supplyModel{
		ID:            s.ID.String(),
		Slot:          1,
		Total:         s.Total.String(),
		InitialHolder: s.InitialHolder.String(),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSupplyModel(m *supplyModel) (*supply.Supply, error) {
	supplyID, err := id.ParseSupplyID(m.ID)
	if err != nil {
		return nil, err
	}
	total, err := types.ParseBalance(m.Total)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: supply %s: %w", m.ID, err)
	}

	return &supply.Supply{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            supplyID,
		Total:         total,
		InitialHolder: account.ID(m.InitialHolder),
	}, nil
}

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tally_accounts"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Balance   string    `grove:"balance"    bson:"balance"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID.String(),
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	balance, err := types.ParseBalance(m.Balance)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: account %s: %w", m.ID, err)
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:      account.ID(m.ID),
		Balance: balance,
	}, nil
}
