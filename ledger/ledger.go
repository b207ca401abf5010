// Package ledger defines the boundary between the vault and the external
// asset ledger that actually custodies funds.
//
// Nothing behind AssetLedger is trusted. Any call may fail, report success
// without moving value, charge a fee, lie about balances, panic, or call
// back into the vault before returning.
package ledger

import (
	"context"
	"errors"

	"github.com/rustyeddy/vault/asset"
)

type AssetLedger interface {
	// TransferIn pulls amount from the given account into the vault's
	// custody. A false result or a non-nil error means nothing moved.
	TransferIn(ctx context.Context, from asset.Address, amount asset.Amount) (bool, error)

	// TransferOut pays amount from custody to the given account.
	TransferOut(ctx context.Context, to asset.Address, amount asset.Amount) (bool, error)

	// BalanceOf reports the holder's balance as the ledger sees it.
	BalanceOf(ctx context.Context, holder asset.Address) (asset.Amount, error)

	// Custody is the address whose balance is the pool.
	Custody() asset.Address
}

// Named is implemented by ledgers that can be checked against an Allowlist.
type Named interface {
	Name() string
}

var ErrNotAllowed = errors.New("ledger not on allowlist")

// Allowlist is the set of audited ledger names a vault may be built on.
// A nil or empty Allowlist admits any ledger.
type Allowlist map[string]struct{}

func NewAllowlist(names ...string) Allowlist {
	a := make(Allowlist, len(names))
	for _, n := range names {
		a[n] = struct{}{}
	}
	return a
}

// Permit returns ErrNotAllowed unless the allowlist is empty or l carries a
// listed name.
func (a Allowlist) Permit(l AssetLedger) error {
	if len(a) == 0 {
		return nil
	}
	n, ok := l.(Named)
	if !ok {
		return ErrNotAllowed
	}
	if _, ok := a[n.Name()]; !ok {
		return ErrNotAllowed
	}
	return nil
}
