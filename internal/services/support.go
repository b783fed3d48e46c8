package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowershop/admin-api/internal/platform/requestctx"
	"github.com/flowershop/admin-api/internal/platform/validation"
	"github.com/flowershop/admin-api/internal/repositories"
)

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type logFunc = func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

// repoErrorMapping names the service errors a repository failure is translated into.
type repoErrorMapping struct {
	notFound    error
	conflict    error
	unavailable error
}

func (m repoErrorMapping) translate(err error, notFoundDetail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			if notFoundDetail != "" {
				return fmt.Errorf("%w: %s", m.notFound, notFoundDetail)
			}
			return m.notFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", m.unavailable, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", m.conflict, err)
		}
	}
	return fmt.Errorf("%w: %v", m.unavailable, err)
}

// validateInput runs struct validation and wraps rule failures in sentinel.
func validateInput(v *validation.Validator, sentinel error, input any) error {
	if v == nil {
		return nil
	}
	if err := v.Struct(input); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", sentinel, verr.Error())
		}
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return nil
}

func actorOrSystem(ctx context.Context, actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return requestctx.Actor(ctx)
}
