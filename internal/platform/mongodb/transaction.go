package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const defaultTxTimeout = 5 * time.Second

// TxFunc runs with a session-bound context; every collection call must use it.
type TxFunc func(ctx context.Context) error

// TxOption customises transaction behaviour.
type TxOption func(*txConfig)

type txConfig struct {
	maxCommitTime time.Duration
}

// WithMaxCommitTime caps how long the server may spend committing.
func WithMaxCommitTime(d time.Duration) TxOption {
	return func(cfg *txConfig) {
		if d > 0 {
			cfg.maxCommitTime = d
		}
	}
}

// RunTransaction executes fn inside a snapshot/majority transaction on client.
// Transactions are not retried: a failure of fn or of the commit is returned as is.
// A context that already carries a session runs fn directly so callers compose.
func RunTransaction(ctx context.Context, client *mongo.Client, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return WrapError("transaction", errors.New("mongodb: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("mongodb: transaction function is nil"))
	}
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	cfg := txConfig{maxCommitTime: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	session, err := client.StartSession()
	if err != nil {
		return WrapError("transaction.start", err)
	}
	cleanupCtx := context.WithoutCancel(ctx)
	defer session.EndSession(cleanupCtx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetMaxCommitTime(&cfg.maxCommitTime)
	if err := session.StartTransaction(txOpts); err != nil {
		return WrapError("transaction.start", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = session.AbortTransaction(cleanupCtx)
			panic(r)
		}
	}()

	sessCtx := mongo.NewSessionContext(ctx, session)
	if err := fn(sessCtx); err != nil {
		if abortErr := session.AbortTransaction(cleanupCtx); abortErr != nil {
			return errors.Join(err, WrapError("transaction.abort", abortErr))
		}
		return err
	}
	if err := session.CommitTransaction(sessCtx); err != nil {
		_ = session.AbortTransaction(cleanupCtx)
		return WrapError("transaction.commit", err)
	}
	return nil
}
