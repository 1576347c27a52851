// Package runtime bounds tool execution: how many calls run at once, how
// many workbooks are loaded at once, and how long a single call may take.
package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vinodismyname/mcpsheets/config"
	"golang.org/x/sync/semaphore"
)

// Limits are the execution guardrails. Zero durations disable the bound.
type Limits struct {
	MaxConcurrentCalls int
	MaxOpenWorkbooks   int

	// CallTimeout is the deadline of one tool call.
	CallTimeout time.Duration
	// QueueTimeout bounds how long a call waits for a free slot.
	QueueTimeout time.Duration
}

// LimitsFromConfig derives Limits from the process configuration.
func LimitsFromConfig(cfg config.Config) Limits {
	return Limits{
		MaxConcurrentCalls: config.DefaultMaxConcurrentCalls,
		MaxOpenWorkbooks:   config.DefaultMaxOpenWorkbooks,
		CallTimeout:        cfg.OperationTimeout,
		QueueTimeout:       config.DefaultQueueTimeout,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxConcurrentCalls <= 0 {
		l.MaxConcurrentCalls = config.DefaultMaxConcurrentCalls
	}
	if l.MaxOpenWorkbooks <= 0 {
		l.MaxOpenWorkbooks = config.DefaultMaxOpenWorkbooks
	}
	l.CallTimeout = max(l.CallTimeout, 0)
	l.QueueTimeout = max(l.QueueTimeout, 0)
	return l
}

// Usage is a point-in-time count of held slots.
type Usage struct {
	ActiveCalls   int64
	OpenWorkbooks int64
}

// Controller hands out call and workbook slots. It satisfies
// workbooks.WorkbookGate.
type Controller struct {
	limits Limits
	calls  *semaphore.Weighted
	books  *semaphore.Weighted

	activeCalls   atomic.Int64
	openWorkbooks atomic.Int64
}

// NewController builds a Controller. Non-positive caps fall back to one.
func NewController(limits Limits) *Controller {
	limits = limits.normalized()
	return &Controller{
		limits: limits,
		calls:  semaphore.NewWeighted(int64(limits.MaxConcurrentCalls)),
		books:  semaphore.NewWeighted(int64(limits.MaxOpenWorkbooks)),
	}
}

// Limits returns the effective limits.
func (c *Controller) Limits() Limits { return c.limits }

// BeginCall blocks until a call slot is free or ctx ends. The returned func
// gives the slot back and must be called exactly once.
func (c *Controller) BeginCall(ctx context.Context) (func(), error) {
	if err := c.calls.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	c.activeCalls.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			c.activeCalls.Add(-1)
			c.calls.Release(1)
		}
	}, nil
}

// AcquireWorkbook reserves a slot for one loaded workbook.
func (c *Controller) AcquireWorkbook(ctx context.Context) error {
	if err := c.books.Acquire(ctx, 1); err != nil {
		return err
	}
	c.openWorkbooks.Add(1)
	return nil
}

// ReleaseWorkbook frees a slot taken by AcquireWorkbook.
func (c *Controller) ReleaseWorkbook() {
	c.openWorkbooks.Add(-1)
	c.books.Release(1)
}

// Usage reports how many slots are currently held.
func (c *Controller) Usage() Usage {
	return Usage{ActiveCalls: c.activeCalls.Load(), OpenWorkbooks: c.openWorkbooks.Load()}
}
