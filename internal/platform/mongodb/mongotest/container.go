//go:build integration

// Package mongotest starts a disposable single-node replica set for integration tests.
package mongotest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/flowershop/admin-api/internal/platform/config"
	"github.com/flowershop/admin-api/internal/platform/mongodb"
)

const image = "mongo:7.0"

// StartProvider launches a replica-set container (transactions need one) and returns a
// provider bound to a database named after the test.
func StartProvider(t *testing.T) *mongodb.Provider {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, image, tcmongo.WithReplicaSet("rs0"))
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate mongo container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo connection string: %v", err)
	}

	provider := mongodb.NewProvider(config.MongoConfig{
		URI:            uri,
		Database:       "flowershop_test",
		ConnectTimeout: 30 * time.Second,
		TxTimeout:      5 * time.Second,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})
	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping mongo: %v", err)
	}
	return provider
}
