package vault

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/id"
	"github.com/rustyeddy/vault/journal"
)

type DepositReceipt struct {
	OpID      string
	Caller    asset.Address
	Requested asset.Amount
	// Received is the custody balance delta measured around the transfer.
	Received      asset.Amount
	Shares        asset.Amount
	TotalShares   asset.Amount
	BalanceBefore asset.Amount
}

// Deposit pulls amount from caller and mints shares against what actually
// arrived. Nothing is minted unless the transfer succeeds and the custody
// balance grows; a failed deposit leaves every share balance untouched.
func (v *Vault) Deposit(ctx context.Context, caller asset.Address, amount asset.Amount) (r DepositReceipt, err error) {
	r = DepositReceipt{OpID: id.NewAt(v.now()), Caller: caller, Requested: amount}
	var st settled
	v.settle(&st)
	defer func() {
		v.record(journal.Entry{
			OpID:        r.OpID,
			Time:        st.at,
			Kind:        journal.KindDeposit,
			Account:     caller,
			Requested:   amount,
			Amount:      r.Received,
			Shares:      r.Shares,
			TotalShares: st.total,
		}, err)
	}()

	if amount == 0 {
		return r, fmt.Errorf("deposit: %w", ErrInvalidAmount)
	}
	if err := v.enter(); err != nil {
		return r, fmt.Errorf("deposit: %w", err)
	}
	defer v.gate.leave()
	defer v.settle(&st)

	before, err := v.custodyBalance(ctx)
	if err != nil {
		return r, fmt.Errorf("deposit: %w", err)
	}
	r.BalanceBefore = before

	if err := v.transferIn(ctx, caller, amount); err != nil {
		return r, fmt.Errorf("deposit: %w", err)
	}

	after, err := v.custodyBalance(ctx)
	if err != nil {
		// Value may have moved but cannot be measured; mint nothing.
		return r, fmt.Errorf("deposit: %w", err)
	}
	if after <= before {
		return r, fmt.Errorf("deposit: %w: custody %d before, %d after", ErrNoTokensReceived, before, after)
	}
	received := after - before
	r.Received = received
	if received > amount {
		v.log.Warn("custody grew by more than the deposit",
			zap.String("op_id", r.OpID),
			zap.Uint64("requested", amount),
			zap.Uint64("received", received))
	}

	// A refund never returns more than the caller sent, whatever the
	// ledger reports.
	refundable := min(received, amount)

	total := v.shares.Total()
	minted := received
	if total > 0 {
		if before == 0 {
			cause := v.halt("deposit", fmt.Errorf("%d shares outstanding against empty custody", total))
			return r, v.refund(ctx, caller, refundable, fmt.Errorf("deposit: %w", cause))
		}
		minted, err = asset.MulDiv(received, total, before)
		if err != nil {
			return r, v.refund(ctx, caller, refundable, fmt.Errorf("deposit: pricing shares: %w", err))
		}
	}
	if minted == 0 {
		return r, v.refund(ctx, caller, refundable, fmt.Errorf("deposit: %w: received %d against custody %d", ErrZeroShares, received, before))
	}

	if err := v.shares.Mint(caller, minted); err != nil {
		return r, v.refund(ctx, caller, refundable, fmt.Errorf("deposit: %w", err))
	}

	r.Shares = minted
	r.TotalShares = v.shares.Total()
	v.metrics.deposit(received)
	v.metrics.state(r.TotalShares, after)
	return r, nil
}

// refund returns value that arrived for a deposit that could not mint.
// The original cause is always returned; a failed refund is joined to it.
func (v *Vault) refund(ctx context.Context, to asset.Address, amount asset.Amount, cause error) error {
	if err := v.transferOut(ctx, to, amount); err != nil {
		v.log.Error("deposit refund failed",
			zap.String("account", string(to)),
			zap.Uint64("amount", amount),
			zap.Error(err))
		return errors.Join(cause, fmt.Errorf("refund: %w", err))
	}
	return cause
}
