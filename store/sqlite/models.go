package sqlite

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

// supplyModel has a constant slot column with a unique index so at most one
// supply row can ever exist.
type supplyModel struct {
	grove.BaseModel `grove:"table:tally_supply"`

	ID            string    `grove:"id,pk"`
	Slot          int       `grove:"slot"`
	Total         string    `grove:"total"`
	InitialHolder string    `grove:"initial_holder"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
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
		return nil, fmt.Errorf("tally/sqlite: supply %s: %w", m.ID, err)
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

	ID        string    `grove:"id,pk"`
	Balance   string    `grove:"balance"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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
		return nil, fmt.Errorf("tally/sqlite: account %s: %w", m.ID, err)
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

// toAccountModels converts accounts for a single multi-row upsert. When an
// account appears more than once the last occurrence wins.
func toAccountModels(accounts []*account.Account) []accountModel {
	index := make(map[account.ID]int, len(accounts))
	models := make([]accountModel, 0, len(accounts))
	for _, a := range accounts {
		if i, ok := index[a.ID]; ok {
			models[i] = *toAccountModel(a)
			continue
		}
		index[a.ID] = len(models)
		models = append(models, *toAccountModel(a))
	}
	return models
}
