package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/ledger/memledger"
)

// seeded builds the pool from the fee-on-transfer scenario: alice holds
// 100 shares, bob 90, custody 190.
func seeded(t *testing.T, opts ...Option) (*Vault, *memledger.Ledger) {
	t.Helper()
	v, l := newVault(t, opts...)
	fund(t, l, "alice", 100)
	fund(t, l, "bob", 100)
	deposit(t, v, "alice", 100)
	require.NoError(t, l.SetFeeBps(1000))
	deposit(t, v, "bob", 100)
	require.Equal(t, asset.Amount(190), v.TotalShares())
	require.Equal(t, asset.Amount(190), l.Balance(custody))
	return v, l
}

func TestWithdrawProportionalPayout(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)

	r, err := v.Withdraw(ctx, "alice", 100)
	require.NoError(t, err)

	assert.Equal(t, asset.Amount(100), r.Payout)
	assert.Equal(t, asset.Amount(190), r.VaultBalance)
	assert.Equal(t, asset.Amount(90), r.TotalShares)
	assert.Equal(t, asset.Amount(90), v.TotalShares())
	assert.Zero(t, v.BalanceOf("alice"))
	assert.Equal(t, asset.Amount(90), l.Balance(custody))
	assert.Equal(t, asset.Amount(100), r.Outflow)
	// Outbound fee: the payout is a request, alice receives 90.
	assert.Equal(t, asset.Amount(90), l.Balance("alice"))
	assert.NoError(t, v.CheckInvariants())
}

func TestWithdrawPartialFloors(t *testing.T) {
	t.Parallel()
	v, l := newVault(t)
	fund(t, l, "alice", 10)
	fund(t, l, "bob", 10)
	deposit(t, v, "alice", 10)
	deposit(t, v, "bob", 10)
	require.NoError(t, l.Donate(1))

	r, err := v.Withdraw(ctx, "alice", 3)
	require.NoError(t, err)
	// floor(3 * 21 / 20)
	assert.Equal(t, asset.Amount(3), r.Payout)
	assert.Equal(t, asset.Amount(7), v.BalanceOf("alice"))
}

func TestWithdrawPreconditions(t *testing.T) {
	t.Parallel()
	v, _ := seeded(t)
	before := snap(v)

	_, err := v.Withdraw(ctx, "alice", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = v.Withdraw(ctx, "alice", 101)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = v.Withdraw(ctx, "mallory", 1)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	assert.Equal(t, before, snap(v))
}

func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	t.Parallel()

	for _, mode := range []memledger.Mode{memledger.Reject, memledger.Fail, memledger.Panic} {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			v, l := seeded(t)
			before := snap(v)
			custodyBefore := l.Balance(custody)

			l.SetOutMode(mode)
			_, err := v.Withdraw(ctx, "alice", 50)
			assert.ErrorIs(t, err, ErrTransferFailed)
			assert.Equal(t, before, snap(v))

			_, err = v.EmergencyWithdraw(ctx, "bob")
			assert.ErrorIs(t, err, ErrTransferFailed)
			assert.Equal(t, before, snap(v))

			assert.Equal(t, custodyBefore, l.Balance(custody))
			assert.False(t, v.Halted())
			assert.NoError(t, v.CheckInvariants())

			// And the vault still works once the ledger recovers.
			l.SetOutMode(memledger.Normal)
			_, err = v.Withdraw(ctx, "alice", 50)
			assert.NoError(t, err)
		})
	}
}

func TestWithdrawZeroPayoutKeepsShares(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)
	l.LieAboutCustody(0)

	_, err := v.Withdraw(ctx, "alice", 10)
	assert.ErrorIs(t, err, ErrZeroPayout)
	assert.Equal(t, asset.Amount(100), v.BalanceOf("alice"))
}

func TestWithdrawLyingHighBalanceCannotOverpay(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)
	l.LieAboutCustody(1_000_000)

	// The inflated payout exceeds real custody and the ledger refuses it.
	_, err := v.Withdraw(ctx, "alice", 100)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, asset.Amount(100), v.BalanceOf("alice"))
	assert.Equal(t, asset.Amount(190), l.Balance(custody))
}

func TestEmergencyWithdrawRedeemsEverything(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)

	r, err := v.EmergencyWithdraw(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, asset.Amount(90), r.Shares)
	// floor(90 * 190 / 190)
	assert.Equal(t, asset.Amount(90), r.Payout)
	assert.Zero(t, v.BalanceOf("bob"))
	assert.Equal(t, asset.Amount(100), v.TotalShares())
	assert.Equal(t, asset.Amount(100), l.Balance(custody))
}

func TestEmergencyWithdrawNoBalance(t *testing.T) {
	t.Parallel()
	v, _ := seeded(t)

	_, err := v.EmergencyWithdraw(ctx, "mallory")
	assert.ErrorIs(t, err, ErrNoBalance)
}

func TestLastHolderDrainsPool(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)
	require.NoError(t, l.SetFeeBps(0))

	_, err := v.EmergencyWithdraw(ctx, "alice")
	require.NoError(t, err)
	_, err = v.EmergencyWithdraw(ctx, "bob")
	require.NoError(t, err)

	assert.Zero(t, v.TotalShares())
	assert.Zero(t, l.Balance(custody))
	assert.Empty(t, v.Holders())
}

func TestPreviews(t *testing.T) {
	t.Parallel()
	v, l := seeded(t)
	require.NoError(t, l.Donate(190))

	got, err := v.PreviewDeposit(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, asset.Amount(50), got)

	got, err = v.PreviewRedeem(ctx, 19)
	require.NoError(t, err)
	assert.Equal(t, asset.Amount(38), got)

	_, err = v.PreviewRedeem(ctx, 191)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	empty, _ := newVault(t)
	got, err = empty.PreviewDeposit(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, asset.Amount(7), got)
}
