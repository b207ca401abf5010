// Package memledger is an in-memory asset ledger. It behaves like a plain
// fungible token by default and can be switched into the hostile modes a
// vault has to survive: fees, rejected transfers, errors, panics, lying
// balance reports, and reentrant callbacks.
package memledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rustyeddy/vault/asset"
)

// Mode selects how a transfer direction behaves.
type Mode int

const (
	Normal Mode = iota
	Reject       // return false, move nothing
	Fail         // return ErrTransfer, move nothing
	Panic        // panic mid-call
	SkipDelivery // return true, move nothing
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Reject:
		return "reject"
	case Fail:
		return "fail"
	case Panic:
		return "panic"
	case SkipDelivery:
		return "skip_delivery"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "normal":
		return Normal, nil
	case "reject":
		return Reject, nil
	case "fail":
		return Fail, nil
	case "panic":
		return Panic, nil
	case "skip_delivery":
		return SkipDelivery, nil
	}
	return Normal, fmt.Errorf("unknown ledger mode %q", s)
}

const bpsDenominator = 10_000

var ErrTransfer = errors.New("memledger: transfer error")

// Hook runs inside a transfer before any value moves, with the ledger lock
// released, so it may call back into whatever invoked the transfer.
type Hook func(ctx context.Context, who asset.Address, amount asset.Amount)

type Ledger struct {
	mu       sync.Mutex
	name     string
	custody  asset.Address
	balances map[asset.Address]asset.Amount
	feeBps   uint64
	inMode   Mode
	outMode  Mode
	lie      *asset.Amount
	onIn     Hook
	onOut    Hook
}

func New(name string, custody asset.Address) *Ledger {
	return &Ledger{
		name:     name,
		custody:  custody,
		balances: make(map[asset.Address]asset.Amount),
	}
}

func (l *Ledger) Name() string { return l.name }
func (l *Ledger) Custody() asset.Address { return l.custody }

// Mint credits an account out of thin air.
func (l *Ledger) Mint(to asset.Address, amount asset.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creditLocked(to, amount)
}

// Donate credits custody directly, bypassing the vault.
func (l *Ledger) Donate(amount asset.Amount) error {
	return l.Mint(l.custody, amount)
}

// SetFeeBps sets a transfer fee in basis points, burned on every transfer
// in either direction.
func (l *Ledger) SetFeeBps(bps uint64) error {
	if bps > bpsDenominator {
		return fmt.Errorf("fee %d bps exceeds %d", bps, bpsDenominator)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feeBps = bps
	return nil
}

func (l *Ledger) SetInMode(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inMode = m
}

func (l *Ledger) SetOutMode(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outMode = m
}

// LieAboutCustody makes BalanceOf(custody) report amount regardless of the
// real balance.
func (l *Ledger) LieAboutCustody(amount asset.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lie = &amount
}

func (l *Ledger) TellTruth() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lie = nil
}

func (l *Ledger) OnTransferIn(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onIn = h
}

func (l *Ledger) OnTransferOut(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onOut = h
}

func (l *Ledger) BalanceOf(ctx context.Context, holder asset.Address) (asset.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holder == l.custody && l.lie != nil {
		return *l.lie, nil
	}
	return l.balances[holder], nil
}

// Balance is the true balance, ignoring LieAboutCustody.
func (l *Ledger) Balance(holder asset.Address) asset.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[holder]
}

func (l *Ledger) TransferIn(ctx context.Context, from asset.Address, amount asset.Amount) (bool, error) {
	l.mu.Lock()
	hook, mode := l.onIn, l.inMode
	l.mu.Unlock()

	if hook != nil {
		hook(ctx, from, amount)
	}
	return l.move(mode, from, l.custody, amount)
}

func (l *Ledger) TransferOut(ctx context.Context, to asset.Address, amount asset.Amount) (bool, error) {
	l.mu.Lock()
	hook, mode := l.onOut, l.outMode
	l.mu.Unlock()

	if hook != nil {
		hook(ctx, to, amount)
	}
	return l.move(mode, l.custody, to, amount)
}

func (l *Ledger) move(mode Mode, from, to asset.Address, amount asset.Amount) (bool, error) {
	switch mode {
	case Reject:
		return false, nil
	case Fail:
		return false, ErrTransfer
	case Panic:
		panic(fmt.Sprintf("memledger: transfer %s -> %s panicked", from, to))
	case SkipDelivery:
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return false, nil
	}
	fee, err := asset.MulDiv(amount, l.feeBps, bpsDenominator)
	if err != nil {
		return false, err
	}
	l.balances[from] -= amount
	if err := l.creditLocked(to, amount-fee); err != nil {
		l.balances[from] += amount
		return false, err
	}
	return true, nil
}

func (l *Ledger) creditLocked(to asset.Address, amount asset.Amount) error {
	sum, err := asset.Add(l.balances[to], amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	l.balances[to] = sum
	return nil
}
