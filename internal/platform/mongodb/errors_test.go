package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrapErrorClassification(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "no documents", err: mongo.ErrNoDocuments, notFound: true},
		{name: "wrapped no documents", err: fmt.Errorf("find: %w", mongo.ErrNoDocuments), notFound: true},
		{
			name:     "duplicate key",
			err:      mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}},
			conflict: true,
		},
		{
			name:        "transient transaction",
			err:         mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}},
			conflict:    true,
			unavailable: true,
		},
		{name: "disconnected", err: mongo.ErrClientDisconnected, unavailable: true},
		{name: "other", err: errors.New("boom")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapError("op", tc.err)
			var repoErr *Error
			if !errors.As(wrapped, &repoErr) {
				t.Fatalf("expected *Error, got %T", wrapped)
			}
			if repoErr.IsNotFound() != tc.notFound {
				t.Errorf("IsNotFound = %v, want %v", repoErr.IsNotFound(), tc.notFound)
			}
			if repoErr.IsConflict() != tc.conflict {
				t.Errorf("IsConflict = %v, want %v", repoErr.IsConflict(), tc.conflict)
			}
			if repoErr.IsUnavailable() != tc.unavailable {
				t.Errorf("IsUnavailable = %v, want %v", repoErr.IsUnavailable(), tc.unavailable)
			}
			if !errors.Is(wrapped, tc.err) {
				t.Errorf("expected wrapped error to unwrap to original")
			}
		})
	}
}

func TestWrapErrorPassesThroughContextErrors(t *testing.T) {
	if err := WrapError("op", context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", fmt.Errorf("x: %w", context.DeadlineExceeded)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WrapError("op", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestNotFoundHelper(t *testing.T) {
	err := NotFound("flowers.get")
	var repoErr *Error
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := err.Error(); got != "flowers.get: mongo: no documents in result" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestRunTransactionRejectsNilInputs(t *testing.T) {
	if err := RunTransaction(context.Background(), nil, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for nil client")
	}
}
