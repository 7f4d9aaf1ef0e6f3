package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	defer Reset()

	Configure(Config{Short: 7 * time.Second})

	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short: got %v, want %v", got.Short, 7*time.Second)
	}
	if got.Medium != DefaultMedium {
		t.Errorf("Medium: got %v, want default %v", got.Medium, DefaultMedium)
	}
	if got.Ping != DefaultPing {
		t.Errorf("Ping: got %v, want default %v", got.Ping, DefaultPing)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Second, Short: time.Second, Medium: time.Second, Long: time.Second})
	Reset()

	if Long() != DefaultLong {
		t.Errorf("Long after Reset: got %v, want %v", Long(), DefaultLong)
	}
	if Short() != DefaultShort {
		t.Errorf("Short after Reset: got %v, want %v", Short(), DefaultShort)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 10*time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", ctx.Err())
	}
}
