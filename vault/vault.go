// Package vault implements pooled-custody accounting: depositors hand an
// asset to the vault, receive shares proportional to the value actually
// received, and redeem shares for a proportional slice of custody.
//
// The asset ledger behind the vault is untrusted. Share math only uses
// custody balance deltas the vault measures around its own transfers, and
// every mutating operation runs under a fail-fast gate so a ledger that
// calls back into the vault cannot interleave with an operation in flight.
package vault

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/journal"
	"github.com/rustyeddy/vault/ledger"
	"github.com/rustyeddy/vault/shares"
)

type Vault struct {
	ledger  ledger.AssetLedger
	custody asset.Address
	shares  *shares.Ledger

	gate   gate
	halted atomic.Bool

	accrualMu     sync.Mutex
	lastAccrual   time.Time
	annualRateBps uint64

	accrueOnWithdraw bool
	allowlist        ledger.Allowlist

	now     func() time.Time
	log     *zap.Logger
	metrics *Metrics
	journal journal.Journal
}

type Option func(*Vault)

func WithLogger(l *zap.Logger) Option {
	return func(v *Vault) { v.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(v *Vault) { v.metrics = m }
}

// WithJournal records every attempted operation. Journal failures are
// logged and never undo a completed operation.
func WithJournal(j journal.Journal) Option {
	return func(v *Vault) { v.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithAnnualRateBps sets the nominal reward rate reported by AccrueRewards.
func WithAnnualRateBps(bps uint64) Option {
	return func(v *Vault) { v.annualRateBps = bps }
}

// WithAccrualOnWithdraw controls whether Withdraw evaluates the accrual
// hook before pricing the redemption. It defaults to true.
func WithAccrualOnWithdraw(on bool) Option {
	return func(v *Vault) { v.accrueOnWithdraw = on }
}

// WithAllowlist refuses ledgers that are not on the list.
func WithAllowlist(a ledger.Allowlist) Option {
	return func(v *Vault) { v.allowlist = a }
}

func New(l ledger.AssetLedger, opts ...Option) (*Vault, error) {
	if l == nil {
		return nil, fmt.Errorf("new vault: nil ledger")
	}

	v := &Vault{
		ledger:           l,
		custody:          l.Custody(),
		shares:           shares.New(),
		accrueOnWithdraw: true,
		now:              time.Now,
		log:              zap.NewNop(),
		journal:          journal.Discard{},
	}
	for _, opt := range opts {
		opt(v)
	}

	if err := v.allowlist.Permit(l); err != nil {
		return nil, fmt.Errorf("new vault: %w: %w", ErrLedgerNotAllowed, err)
	}
	v.lastAccrual = v.now()
	return v, nil
}

// BalanceOf returns holder's share balance.
func (v *Vault) BalanceOf(holder asset.Address) asset.Amount {
	return v.shares.BalanceOf(holder)
}

func (v *Vault) TotalShares() asset.Amount {
	return v.shares.Total()
}

func (v *Vault) Holders() []shares.Holding {
	return v.shares.Holders()
}

func (v *Vault) Custody() asset.Address {
	return v.custody
}

func (v *Vault) Halted() bool {
	return v.halted.Load()
}

// CheckInvariants verifies that share balances sum to the total supply.
func (v *Vault) CheckInvariants() error {
	if err := v.shares.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	return nil
}

// PreviewDeposit estimates the shares a deposit of amount would mint if the
// ledger delivered it in full. The actual mint uses the measured delta.
func (v *Vault) PreviewDeposit(ctx context.Context, amount asset.Amount) (asset.Amount, error) {
	total := v.shares.Total()
	if total == 0 {
		return amount, nil
	}
	bal, err := v.custodyBalance(ctx)
	if err != nil {
		return 0, err
	}
	if bal == 0 {
		return 0, ErrInvariantViolation
	}
	return asset.MulDiv(amount, total, bal)
}

// PreviewRedeem estimates the payout for n shares at the current custody
// balance.
func (v *Vault) PreviewRedeem(ctx context.Context, n asset.Amount) (asset.Amount, error) {
	total := v.shares.Total()
	if n > total {
		return 0, ErrInsufficientShares
	}
	if total == 0 {
		return 0, nil
	}
	bal, err := v.custodyBalance(ctx)
	if err != nil {
		return 0, err
	}
	return asset.MulDiv(n, bal, total)
}

// enter acquires the gate for a mutating operation.
func (v *Vault) enter() error {
	if v.halted.Load() {
		return ErrHalted
	}
	if !v.gate.enter() {
		return ErrReentrancyDetected
	}
	return nil
}

// settled is the supply and time an operation finished at. Mutating
// operations capture it while the gate is still held so the journal row
// cannot pick up a later operation's totals.
type settled struct {
	total asset.Amount
	at    time.Time
}

func (v *Vault) settle(s *settled) {
	s.total, s.at = v.shares.Total(), v.now()
}

// halt stops all further mutating operations.
func (v *Vault) halt(op string, cause error) error {
	v.halted.Store(true)
	v.metrics.halt()
	v.log.Error("vault halted", zap.String("op", op), zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrInvariantViolation, cause)
}

// The ledger calls below are the trust boundary: errors, false results and
// panics all come back as wrapped sentinels.

func (v *Vault) custodyBalance(ctx context.Context) (bal asset.Amount, err error) {
	defer func() {
		if r := recover(); r != nil {
			bal, err = 0, fmt.Errorf("%w: ledger panicked: %v", ErrBalanceQuery, r)
		}
	}()

	bal, err = v.ledger.BalanceOf(ctx, v.custody)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBalanceQuery, err)
	}
	return bal, nil
}

func (v *Vault) transferIn(ctx context.Context, from asset.Address, amount asset.Amount) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: ledger panicked: %v", ErrTransferFailed, r)
		}
	}()

	ok, err := v.ledger.TransferIn(ctx, from, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: ledger rejected transfer in of %d from %s", ErrTransferFailed, amount, from)
	}
	return nil
}

func (v *Vault) transferOut(ctx context.Context, to asset.Address, amount asset.Amount) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: ledger panicked: %v", ErrTransferFailed, r)
		}
	}()

	ok, err := v.ledger.TransferOut(ctx, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: ledger rejected transfer out of %d to %s", ErrTransferFailed, amount, to)
	}
	return nil
}

// record logs, counts and journals a finished operation.
func (v *Vault) record(e journal.Entry, err error) {
	e.Status = journal.StatusOK
	if err != nil {
		e.Status = journal.StatusFailed
		e.Error = err.Error()
	}
	v.metrics.observe(string(e.Kind), err)

	fields := []zap.Field{
		zap.String("op_id", e.OpID),
		zap.String("op", string(e.Kind)),
		zap.String("account", string(e.Account)),
		zap.Uint64("requested", e.Requested),
		zap.Uint64("amount", e.Amount),
		zap.Uint64("shares", e.Shares),
		zap.Uint64("total_shares", e.TotalShares),
	}
	if err != nil {
		v.log.Warn("vault operation failed", append(fields, zap.Error(err))...)
	} else {
		v.log.Info("vault operation", fields...)
	}

	if jerr := v.journal.Record(e); jerr != nil {
		v.log.Error("journal write failed", zap.String("op_id", e.OpID), zap.Error(jerr))
	}
}
