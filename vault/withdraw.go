package vault

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/id"
	"github.com/rustyeddy/vault/journal"
)

type WithdrawReceipt struct {
	OpID   string
	Caller asset.Address
	Shares asset.Amount
	// Payout is the amount requested from the ledger. A fee-charging ledger
	// may deliver less to the caller.
	Payout       asset.Amount
	VaultBalance asset.Amount
	TotalShares  asset.Amount
	// Outflow is the custody balance drop measured after the transfer, or
	// zero when it could not be measured.
	Outflow asset.Amount
}

// Withdraw burns n of caller's shares and pays out their proportional
// slice of custody. If the payout transfer fails the burn is reverted.
func (v *Vault) Withdraw(ctx context.Context, caller asset.Address, n asset.Amount) (r WithdrawReceipt, err error) {
	r = WithdrawReceipt{OpID: id.NewAt(v.now()), Caller: caller, Shares: n}
	var st settled
	v.settle(&st)
	defer v.recordWithdraw(journal.KindWithdraw, n, &r, &st, &err)

	if n == 0 {
		return r, fmt.Errorf("withdraw: %w", ErrInvalidAmount)
	}
	if err := v.enter(); err != nil {
		return r, fmt.Errorf("withdraw: %w", err)
	}
	defer v.gate.leave()
	defer v.settle(&st)

	if bal := v.shares.BalanceOf(caller); bal < n {
		return r, fmt.Errorf("withdraw: %w: have %d, want %d", ErrInsufficientShares, bal, n)
	}
	if v.accrueOnWithdraw {
		a := v.accrue()
		v.log.Debug("accrual hook", zap.Duration("elapsed", a.Elapsed), zap.Uint64("nominal", a.Nominal))
	}

	if err := v.redeem(ctx, "withdraw", caller, n, &r); err != nil {
		return r, fmt.Errorf("withdraw: %w", err)
	}
	return r, nil
}

// EmergencyWithdraw redeems caller's entire balance. It shares the pricing,
// rollback and gate rules of Withdraw but never runs the accrual hook and
// does not depend on Withdraw being enabled.
func (v *Vault) EmergencyWithdraw(ctx context.Context, caller asset.Address) (r WithdrawReceipt, err error) {
	r = WithdrawReceipt{OpID: id.NewAt(v.now()), Caller: caller}
	var st settled
	v.settle(&st)
	defer v.recordWithdraw(journal.KindEmergencyWithdraw, 0, &r, &st, &err)

	if err := v.enter(); err != nil {
		return r, fmt.Errorf("emergency withdraw: %w", err)
	}
	defer v.gate.leave()
	defer v.settle(&st)

	n := v.shares.BalanceOf(caller)
	if n == 0 {
		return r, fmt.Errorf("emergency withdraw: %w", ErrNoBalance)
	}
	r.Shares = n

	if err := v.redeem(ctx, "emergency_withdraw", caller, n, &r); err != nil {
		return r, fmt.Errorf("emergency withdraw: %w", err)
	}
	return r, nil
}

// redeem prices, burns, and pays out n shares. The gate must be held.
func (v *Vault) redeem(ctx context.Context, op string, caller asset.Address, n asset.Amount, r *WithdrawReceipt) error {
	bal, err := v.custodyBalance(ctx)
	if err != nil {
		return err
	}
	r.VaultBalance = bal

	total := v.shares.Total()
	if total == 0 {
		return v.halt(op, fmt.Errorf("redeeming %d shares with zero supply", n))
	}
	// n <= total, so the quotient is at most bal and cannot overflow.
	payout, err := asset.MulDiv(n, bal, total)
	if err != nil {
		return v.halt(op, fmt.Errorf("pricing %d of %d shares: %w", n, total, err))
	}
	if payout == 0 {
		return fmt.Errorf("%w: %d shares against custody %d", ErrZeroPayout, n, bal)
	}

	if err := v.shares.Burn(caller, n); err != nil {
		return v.halt(op, err)
	}

	if err := v.transferOut(ctx, caller, payout); err != nil {
		if merr := v.shares.Mint(caller, n); merr != nil {
			return v.halt(op, fmt.Errorf("reverting burn of %d shares for %s: %w", n, caller, merr))
		}
		return err
	}

	r.Payout = payout
	r.TotalShares = v.shares.Total()

	after, qerr := v.custodyBalance(ctx)
	if qerr != nil {
		v.log.Debug("post-payout balance unavailable", zap.String("op_id", r.OpID), zap.Error(qerr))
		after = bal - payout
	} else if after <= bal {
		r.Outflow = bal - after
	}
	if r.Outflow > payout {
		v.log.Warn("custody dropped more than the payout",
			zap.String("op_id", r.OpID),
			zap.Uint64("payout", payout),
			zap.Uint64("outflow", r.Outflow))
	}

	v.metrics.payout(payout)
	v.metrics.state(r.TotalShares, after)
	return nil
}

func (v *Vault) recordWithdraw(kind journal.Kind, requested asset.Amount, r *WithdrawReceipt, st *settled, err *error) {
	if requested == 0 {
		requested = r.Shares
	}
	v.record(journal.Entry{
		OpID:        r.OpID,
		Time:        st.at,
		Kind:        kind,
		Account:     r.Caller,
		Requested:   requested,
		Amount:      r.Payout,
		Shares:      r.Shares,
		TotalShares: st.total,
	}, *err)
}
