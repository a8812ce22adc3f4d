package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/supply"
)

// Collection name constants.
const (
	colSupply   = "tally_supply"
	colAccounts = "tally_accounts"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Genesis and multi-account writes run in a multi-document transaction, so
// the server must be a replica set or sharded cluster.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections. Creating the indexes
// also creates the collections, which must exist before the first
// transaction writes to them.
func (s *Store) Migrate(ctx context.Context) error {
	return createIndexes(ctx, s.database())
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

func (s *Store) CreateSupply(ctx context.Context, sup *supply.Supply, holder *account.Account) error {
	if err := sup.CheckGenesis(holder); err != nil {
		return err
	}

	return createGenesis(ctx, s.database(), sup, holder)
}

func (s *Store) GetSupply(ctx context.Context) (*supply.Supply, error) {
	var m supplyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"slot": 1}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrNotInitialized
		}
		return nil, fmt.Errorf("tally/mongo: get supply: %w", err)
	}
	return fromSupplyModel(&m)
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, accountID account.ID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", tally.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("tally/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

// PutAccounts upserts all accounts inside one transaction.
func (s *Store) PutAccounts(ctx context.Context, accounts ...*account.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	return putAccounts(ctx, s.database(), accounts...)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list accounts: %w", err)
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

func (s *Store) database() *mongo.Database {
	return s.mdb.Collection(colAccounts).Database()
}

// createIndexes creates the indexes for all tally collections.
func createIndexes(ctx context.Context, db *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// createGenesis inserts the supply document and credits the holder in one
// transaction. The unique slot index turns a second genesis into
// tally.ErrAlreadyInitialized.
func createGenesis(ctx context.Context, db *mongo.Database, sup *supply.Supply, holder *account.Account) error {
	err := withTransaction(ctx, db.Client(), func(sc context.Context) error {
		if _, err := db.Collection(colSupply).InsertOne(sc, toSupplyModel(sup)); err != nil {
			return err
		}
		_, err := db.Collection(colAccounts).BulkWrite(sc, accountWrites(holder))
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyInitialized
		}
		return fmt.Errorf("tally/mongo: create supply: %w", err)
	}
	return nil
}

// putAccounts upserts accounts in one transaction.
func putAccounts(ctx context.Context, db *mongo.Database, accounts ...*account.Account) error {
	err := withTransaction(ctx, db.Client(), func(sc context.Context) error {
		_, err := db.Collection(colAccounts).BulkWrite(sc, accountWrites(accounts...))
		return err
	})
	if err != nil {
		return fmt.Errorf("tally/mongo: put accounts: %w", err)
	}
	return nil
}

// withTransaction runs fn inside a session transaction. The driver retries
// fn on transient transaction errors.
func withTransaction(ctx context.Context, client *mongo.Client, fn func(sc context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// accountWrites builds one upsert per account. created_at is only set when
// the document is inserted.
func accountWrites(accounts ...*account.Account) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(accounts))
	for _, a := range accounts {
		m := toAccountModel(a)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"balance":    m.Balance,
					"updated_at": m.UpdatedAt,
				},
				"$setOnInsert": bson.M{
					"created_at": m.CreatedAt,
				},
			}).
			SetUpsert(true))
	}
	return writes
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSupply: {
			{
				Keys:    bson.D{{Key: "slot", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAccounts: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
