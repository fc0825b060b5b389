package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckHealth(t *testing.T) {
	t.Run("returns ping error", func(t *testing.T) {
		want := errors.New("connection refused")
		err := CheckHealth(context.Background(), pingFunc(func(context.Context) error { return want }))
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("bounds the ping with a deadline", func(t *testing.T) {
		err := CheckHealth(context.Background(), pingFunc(func(ctx context.Context) error {
			deadline, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			if time.Until(deadline) > 2*time.Second {
				return errors.New("deadline too far")
			}
			return nil
		}))
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}
