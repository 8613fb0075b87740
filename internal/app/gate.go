package service

import (
	"context"
)

// gate is a buffered-channel semaphore bounding concurrent forward passes.
// The forward pass holds the whole decoded clip in memory, so the bound is
// the process's memory ceiling. Callers wait rather than being rejected.
type gate struct {
	slots chan struct{}
}

func newGate(limit int) *gate {
	if limit < 1 {
		limit = 1
	}
	return &gate{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (g *gate) Release() {
	<-g.slots
}

// InFlight reports how many slots are currently held.
func (g *gate) InFlight() int {
	return len(g.slots)
}
