package fetcher

import (
	"context"
	"sync"
)

// Gate enforces per-origin politeness: a bounded concurrency semaphore keyed
// by Feed.PerHostKey, so that feeds sharing an authority are throttled
// together rather than independently. Admission is purely concurrency-based;
// a host with free slots is fetched at full speed.
type Gate struct {
	perHostConcurrency int
	hosts              sync.Map // map[string]chan struct{}
}

// NewGate constructs a politeness gate allowing up to perHostConcurrency
// concurrent in-flight requests to any single host.
func NewGate(perHostConcurrency int) *Gate {
	if perHostConcurrency < 1 {
		perHostConcurrency = 1
	}
	return &Gate{perHostConcurrency: perHostConcurrency}
}

func (g *Gate) semFor(hostKey string) chan struct{} {
	if existing, ok := g.hosts.Load(hostKey); ok {
		return existing.(chan struct{})
	}
	fresh := make(chan struct{}, g.perHostConcurrency)
	actual, _ := g.hosts.LoadOrStore(hostKey, fresh)
	return actual.(chan struct{})
}

// Acquire blocks until a concurrency slot for hostKey is free, or ctx ends
// first. The returned release function must be called exactly once to free
// the slot.
func (g *Gate) Acquire(ctx context.Context, hostKey string) (release func(), err error) {
	sem := g.semFor(hostKey)

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return func() { <-sem }, nil
}
