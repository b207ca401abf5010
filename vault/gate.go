package vault

import "sync/atomic"

// gate admits one mutating operation at a time and fails fast instead of
// blocking. A collaborator calling back into the vault and a second
// goroutine arriving mid-operation are rejected the same way.
type gate struct {
	held atomic.Bool
}

func (g *gate) enter() bool {
	return g.held.CompareAndSwap(false, true)
}

func (g *gate) leave() {
	g.held.Store(false)
}
