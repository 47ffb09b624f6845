// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestConfig test configuration
type TestConfig struct {
	Timeout  time.Duration
	Workers  int
	LogLevel zapcore.Level
}

// TestContext simplified test context
type TestContext struct {
	t       *testing.T
	config  *TestConfig
	logger  *zap.Logger
	logs    *observer.ObservedLogs
	cleanup []func()
	mu      sync.RWMutex
}

// NewTestContext creates new test context
func NewTestContext(t *testing.T, config *TestConfig) *TestContext {
	if config == nil {
		config = &TestConfig{
			Timeout:  5 * time.Second,
			Workers:  4,
			LogLevel: zapcore.DebugLevel,
		}
	}

	core, logs := observer.New(config.LogLevel)
	tc := &TestContext{
		t:       t,
		config:  config,
		logger:  zap.New(core),
		logs:    logs,
		cleanup: make([]func(), 0),
	}
	t.Cleanup(tc.Cleanup)
	return tc
}

// Workers returns the configured worker count
func (tc *TestContext) Workers() int {
	return tc.config.Workers
}

// Logger returns a logger whose entries are captured by Logs
func (tc *TestContext) Logger() *zap.Logger {
	return tc.logger
}

// Logs returns the entries written through Logger
func (tc *TestContext) Logs() *observer.ObservedLogs {
	return tc.logs
}

// Context returns context with timeout
func (tc *TestContext) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), tc.config.Timeout)
	tc.AddCleanup(cancel)
	return ctx
}

// AddCleanup adds cleanup function
func (tc *TestContext) AddCleanup(fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cleanup = append(tc.cleanup, fn)
}

// Cleanup executes cleanup
func (tc *TestContext) Cleanup() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}
	tc.cleanup = nil
}

// RequireNoError asserts no error
func (tc *TestContext) RequireNoError(err error, msgAndArgs ...interface{}) {
	if !assert.NoError(tc.t, err, msgAndArgs...) {
		tc.t.FailNow()
	}
}

// AssertEventually waits for condition to be true within the configured timeout
func (tc *TestContext) AssertEventually(condition func() bool, msgAndArgs ...interface{}) {
	assert.Eventually(tc.t, condition, tc.config.Timeout, 5*time.Millisecond, msgAndArgs...)
}

// Gate blocks task bodies until it is opened
type Gate struct {
	ch      chan struct{}
	once    sync.Once
	entered chan struct{}
}

// NewGate creates a closed gate
func NewGate() *Gate {
	return &Gate{
		ch:      make(chan struct{}),
		entered: make(chan struct{}, 1024),
	}
}

// Wait records entry and blocks until Open is called
func (g *Gate) Wait() {
	g.entered <- struct{}{}
	<-g.ch
}

// Open releases all current and future waiters. Safe to call more than once.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Entered returns the number of callers that reached Wait so far
func (g *Gate) Entered() int {
	return len(g.entered)
}

// Recorder records labels in call order from concurrent task bodies
type Recorder struct {
	mu    sync.Mutex
	order []string
}

// Record appends a label
func (r *Recorder) Record(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, label)
}

// Order returns a copy of the recorded labels
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of recorded labels
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
