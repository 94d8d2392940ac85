// Package perf provides lightweight event and interval counters for
// diagnostics.  Counting is a single atomic add and is safe from interrupt
// context.  Counters register themselves globally so a diagnostic dump can
// print all of them at once.
package perf

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	mtx sync.Mutex
	all []interface{ WriteTo(io.Writer) (int64, error) }
)

func register(c interface{ WriteTo(io.Writer) (int64, error) }) {
	mtx.Lock()
	all = append(all, c)
	mtx.Unlock()
}

// Print dumps all registered counters to w.
func Print(w io.Writer) {
	mtx.Lock()
	defer mtx.Unlock()
	for _, c := range all {
		c.WriteTo(w)
	}
}

// A Counter counts events.
type Counter struct {
	name string
	n    atomic.Uint64
}

func NewCounter(name string) *Counter {
	c := &Counter{name: name}
	register(c)
	return c
}

//go:nosplit
func (c *Counter) Count() { c.n.Add(1) }

func (c *Counter) Load() uint64 { return c.n.Load() }

func (c *Counter) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s: %d events\n", c.name, c.n.Load())
	return int64(n), err
}

// An Elapsed counter measures intervals between Begin and End.  An interval
// can be discarded with Cancel, in which case neither the event count nor the
// times are updated.  Begin/End/Cancel must be called from a single goroutine;
// only reading is concurrency safe.
type Elapsed struct {
	name        string
	begin       int64
	n           atomic.Uint64
	total       atomic.Int64
	least, most atomic.Int64
}

func NewElapsed(name string) *Elapsed {
	e := &Elapsed{name: name}
	e.least.Store(int64(^uint64(0) >> 1))
	register(e)
	return e
}

func (e *Elapsed) Begin() {
	e.begin = time.Now().UnixNano()
}

// End closes the interval opened by the last Begin.  Without a matching Begin
// (e.g. after Cancel) it is a no-op.
func (e *Elapsed) End() {
	if e.begin == 0 {
		return
	}
	d := time.Now().UnixNano() - e.begin
	e.begin = 0

	e.n.Add(1)
	e.total.Add(d)
	if d < e.least.Load() {
		e.least.Store(d)
	}
	if d > e.most.Load() {
		e.most.Store(d)
	}
}

// Cancel discards the interval opened by the last Begin.
func (e *Elapsed) Cancel() {
	e.begin = 0
}

func (e *Elapsed) Count() uint64 { return e.n.Load() }

func (e *Elapsed) WriteTo(w io.Writer) (int64, error) {
	n := e.n.Load()
	if n == 0 {
		nn, err := fmt.Fprintf(w, "%s: 0 events\n", e.name)
		return int64(nn), err
	}
	nn, err := fmt.Fprintf(w, "%s: %d events, %v total, %v avg, %v least, %v most\n",
		e.name, n,
		time.Duration(e.total.Load()),
		time.Duration(e.total.Load()/int64(n)),
		time.Duration(e.least.Load()),
		time.Duration(e.most.Load()))
	return int64(nn), err
}
