package base

import (
	"context"

	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"go.uber.org/zap"
)

// WithSession connects c, runs fn and disconnects c on every exit path,
// including a failed Connect. A Disconnect error is returned only when fn
// succeeded.
func WithSession(ctx context.Context, c core.Connector, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if derr := c.Disconnect(ctx); derr != nil {
			logger.Get().Warn("disconnect failed",
				zap.String("connector", c.Name()),
				zap.Error(derr))
			if err == nil {
				err = derr
			}
		}
	}()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

// TestConnection opens and closes a session, returning the connect error
func TestConnection(ctx context.Context, c core.Connector) error {
	return WithSession(ctx, c, func(context.Context) error { return nil })
}

// DiscoverSchema introspects c inside its own session
func DiscoverSchema(ctx context.Context, c core.Connector) ([]core.SchemaObject, error) {
	var objects []core.SchemaObject
	err := WithSession(ctx, c, func(ctx context.Context) error {
		var err error
		objects, err = c.GetSchema(ctx)
		return err
	})
	return objects, err
}
