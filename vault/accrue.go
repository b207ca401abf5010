package vault

import (
	"math/big"
	"time"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/id"
	"github.com/rustyeddy/vault/journal"
)

const (
	bpsDenominator = 10_000
	secondsPerYear = 365 * 24 * 60 * 60
)

// Accrual reports one evaluation of the reward window.
type Accrual struct {
	From    time.Time
	To      time.Time
	Elapsed time.Duration
	// Nominal is the reward the configured annual rate implies for the
	// outstanding shares over Elapsed. It is informational only: nothing
	// is minted and custody is untouched.
	Nominal asset.Amount
}

// AccrueRewards advances the accrual timestamp to now and reports the
// nominal reward for the elapsed window. It changes no share balance, the
// total supply, or any payout, so any caller may invoke it any number of
// times.
//
// Funding real rewards here would have to happen before the timestamp
// moves, and must not let a caller reset the window to shrink another
// depositor's pending yield. Neither is implemented.
func (v *Vault) AccrueRewards() Accrual {
	a := v.accrue()
	v.record(journal.Entry{
		OpID:        id.NewAt(a.To),
		Time:        a.To,
		Kind:        journal.KindAccrue,
		Amount:      a.Nominal,
		TotalShares: v.shares.Total(),
	}, nil)
	return a
}

// AccrualTimestamp is the last time the reward window was evaluated.
func (v *Vault) AccrualTimestamp() time.Time {
	v.accrualMu.Lock()
	defer v.accrualMu.Unlock()
	return v.lastAccrual
}

func (v *Vault) accrue() Accrual {
	now := v.now()

	v.accrualMu.Lock()
	defer v.accrualMu.Unlock()

	a := Accrual{From: v.lastAccrual, To: v.lastAccrual}
	if !now.After(v.lastAccrual) {
		// The timestamp never moves backwards.
		return a
	}
	a.To = now
	a.Elapsed = now.Sub(v.lastAccrual)
	a.Nominal = nominalReward(v.shares.Total(), v.annualRateBps, a.Elapsed)
	v.lastAccrual = now
	return a
}

// nominalReward is total * rateBps * seconds / (10000 * secondsPerYear),
// saturating at asset.Max.
func nominalReward(total asset.Amount, rateBps uint64, elapsed time.Duration) asset.Amount {
	secs := uint64(elapsed / time.Second)
	if total == 0 || rateBps == 0 || secs == 0 {
		return 0
	}

	num := new(big.Int).SetUint64(total)
	num.Mul(num, new(big.Int).SetUint64(rateBps))
	num.Mul(num, new(big.Int).SetUint64(secs))
	num.Quo(num, big.NewInt(bpsDenominator*secondsPerYear))
	if !num.IsUint64() {
		return asset.Max
	}
	return num.Uint64()
}
