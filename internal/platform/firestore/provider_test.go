package firestore

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/flowershop/admin-api/internal/platform/config"
)

func TestProviderRequiresProjectID(t *testing.T) {
	p := NewProvider(config.FirestoreConfig{})
	if _, err := p.Client(context.Background()); err == nil {
		t.Fatal("expected error without project id")
	}
}

func TestProviderCreatesClientOnce(t *testing.T) {
	calls := 0
	var gotProject string
	var gotOpts int
	p := NewProvider(config.FirestoreConfig{ProjectID: "flowershop-dev", EmulatorHost: "localhost:8080"})
	p.newClient = func(_ context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
		calls++
		gotProject = projectID
		gotOpts = len(opts)
		return &firestore.Client{}, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := p.Client(context.Background()); err != nil {
			t.Fatalf("Client returned error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single client creation, got %d", calls)
	}
	if gotProject != "flowershop-dev" {
		t.Fatalf("unexpected project %q", gotProject)
	}
	if gotOpts != 3 {
		t.Fatalf("expected emulator options to be applied, got %d options", gotOpts)
	}
}

func TestProviderFactoryErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	p := NewProvider(config.FirestoreConfig{ProjectID: "p"})
	p.newClient = func(context.Context, string, ...option.ClientOption) (*firestore.Client, error) {
		return nil, boom
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped factory error, got %v", err)
	}
}

func TestProviderClosed(t *testing.T) {
	p := NewProvider(config.FirestoreConfig{ProjectID: "p"})
	if err := p.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}
