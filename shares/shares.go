// Package shares keeps the vault's claim-unit bookkeeping: a balance per
// depositor and the aggregate supply. It makes no external calls.
package shares

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/vault/asset"
)

var (
	ErrInsufficient  = errors.New("insufficient shares")
	ErrTotalMismatch = errors.New("share balances do not sum to total")
)

// Ledger maps holders to share balances. The sum of all balances equals
// Total between any two calls.
type Ledger struct {
	mu       sync.RWMutex
	balances map[asset.Address]asset.Amount
	total    asset.Amount
}

func New() *Ledger {
	return &Ledger{balances: make(map[asset.Address]asset.Amount)}
}

func (l *Ledger) BalanceOf(holder asset.Address) asset.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[holder]
}

func (l *Ledger) Total() asset.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Holding is one row of the ledger.
type Holding struct {
	Holder asset.Address
	Shares asset.Amount
}

// Holders returns every non-zero balance ordered by address.
func (l *Ledger) Holders() []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Holding, 0, len(l.balances))
	for h, n := range l.balances {
		out = append(out, Holding{Holder: h, Shares: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out
}

// Mint credits n shares to holder. Either both the balance and the total
// grow or neither does.
func (l *Ledger) Mint(holder asset.Address, n asset.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	total, err := asset.Add(l.total, n)
	if err != nil {
		return fmt.Errorf("mint %s: %w", holder, err)
	}
	bal, err := asset.Add(l.balances[holder], n)
	if err != nil {
		return fmt.Errorf("mint %s: %w", holder, err)
	}
	if bal > 0 {
		l.balances[holder] = bal
	}
	l.total = total
	return nil
}

// Burn debits n shares from holder.
func (l *Ledger) Burn(holder asset.Address, n asset.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[holder]
	if bal < n || l.total < n {
		return fmt.Errorf("burn %d from %s (balance %d, total %d): %w", n, holder, bal, l.total, ErrInsufficient)
	}
	if bal == n {
		delete(l.balances, holder)
	} else {
		l.balances[holder] = bal - n
	}
	l.total -= n
	return nil
}

// Check verifies the conservation invariant.
func (l *Ledger) Check() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sum asset.Amount
	for h, n := range l.balances {
		var err error
		if sum, err = asset.Add(sum, n); err != nil {
			return fmt.Errorf("summing at %s: %w", h, ErrTotalMismatch)
		}
	}
	if sum != l.total {
		return fmt.Errorf("sum %d, total %d: %w", sum, l.total, ErrTotalMismatch)
	}
	return nil
}
