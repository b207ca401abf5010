package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/vault/asset"
)

func TestAccrueAdvancesTimestampOnly(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, l := seeded(t, WithClock(clk.Now), WithAnnualRateBps(500))
	created := v.AccrualTimestamp()
	before := snap(v)
	custodyBefore := l.Balance(custody)

	for i := 0; i < 5; i++ {
		clk.Advance(time.Hour)
		a := v.AccrueRewards()
		assert.Equal(t, time.Hour, a.Elapsed)
		assert.Equal(t, clk.Now(), v.AccrualTimestamp())
	}

	assert.Equal(t, created.Add(5*time.Hour), v.AccrualTimestamp())
	assert.Equal(t, before, snap(v))
	assert.Equal(t, custodyBefore, l.Balance(custody))
}

func TestAccrueDoesNotChangePayout(t *testing.T) {
	t.Parallel()

	payout := func(accruals int) asset.Amount {
		clk := newClock()
		v, _ := seeded(t, WithClock(clk.Now), WithAnnualRateBps(10_000))
		for i := 0; i < accruals; i++ {
			clk.Advance(24 * time.Hour)
			v.AccrueRewards()
		}
		r, err := v.Withdraw(ctx, "bob", 45)
		require.NoError(t, err)
		return r.Payout
	}

	assert.Equal(t, payout(0), payout(10))
}

func TestAccrueIdempotentWithoutElapsedTime(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, _ := newVault(t, WithClock(clk.Now), WithAnnualRateBps(500))

	first := v.AccrueRewards()
	second := v.AccrueRewards()
	assert.Zero(t, first.Elapsed)
	assert.Zero(t, second.Nominal)
	assert.Equal(t, clk.Now(), v.AccrualTimestamp())
}

func TestAccrueNeverMovesBackwards(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, _ := newVault(t, WithClock(clk.Now))
	start := v.AccrualTimestamp()

	clk.Advance(-time.Hour)
	a := v.AccrueRewards()

	assert.Zero(t, a.Elapsed)
	assert.Equal(t, start, a.To)
	assert.Equal(t, start, v.AccrualTimestamp())
}

func TestAccrueNominalReward(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, l := newVault(t, WithClock(clk.Now), WithAnnualRateBps(500))
	fund(t, l, "alice", 1_000_000)
	deposit(t, v, "alice", 1_000_000)

	clk.Advance(365 * 24 * time.Hour)
	a := v.AccrueRewards()
	assert.Equal(t, asset.Amount(50_000), a.Nominal)
	assert.Equal(t, asset.Amount(1_000_000), v.TotalShares())
}

func TestNominalRewardSaturates(t *testing.T) {
	t.Parallel()
	got := nominalReward(asset.Max, 10_000, 100*365*24*time.Hour)
	assert.Equal(t, asset.Max, got)
	assert.Zero(t, nominalReward(0, 500, time.Hour))
	assert.Zero(t, nominalReward(100, 500, time.Millisecond))
}

func TestWithdrawRunsAccrualHook(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, _ := seeded(t, WithClock(clk.Now))

	clk.Advance(time.Minute)
	_, err := v.Withdraw(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), v.AccrualTimestamp())

	clk.Advance(time.Minute)
	_, err = v.EmergencyWithdraw(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(-time.Minute), v.AccrualTimestamp())
}

func TestWithdrawAccrualHookCanBeDisabled(t *testing.T) {
	t.Parallel()
	clk := newClock()
	v, _ := seeded(t, WithClock(clk.Now), WithAccrualOnWithdraw(false))
	start := v.AccrualTimestamp()

	clk.Advance(time.Minute)
	_, err := v.Withdraw(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, start, v.AccrualTimestamp())
}
