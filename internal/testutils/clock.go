package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/prioritypool/pkg/types"
)

var _ types.Clock = (*quartz.Mock)(nil)

// NewMockClock creates a mock clock for testing, pinned to a fixed start time
func NewMockClock(t testing.TB) *quartz.Mock {
	mock := quartz.NewMock(t)
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return mock
}

// Advance moves the mock clock forward and waits for any timers it fires
func Advance(t testing.TB, mock *quartz.Mock, d time.Duration) {
	t.Helper()
	mock.Advance(d).MustWait(context.Background())
}
