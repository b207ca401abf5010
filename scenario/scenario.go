// Package scenario builds a simulated vault from config and replays
// scripted operations against it.
package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/config"
	"github.com/rustyeddy/vault/journal"
	"github.com/rustyeddy/vault/ledger"
	"github.com/rustyeddy/vault/ledger/memledger"
	"github.com/rustyeddy/vault/vault"
)

// Clock is the simulated time source. Steps advance it with "after".
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{t: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Sim is a vault wired to an in-memory ledger.
type Sim struct {
	Vault  *vault.Vault
	Ledger *memledger.Ledger
	Clock  *Clock
}

// Build creates the ledger and vault described by cfg. Extra vault options
// such as a logger or metrics are applied after the config-derived ones.
func Build(cfg *config.Config, start time.Time, j journal.Journal, opts ...vault.Option) (*Sim, error) {
	l := memledger.New(cfg.Ledger.Name, asset.Address(cfg.Vault.Custody))
	if err := l.SetFeeBps(cfg.Ledger.FeeBps); err != nil {
		return nil, err
	}
	in, err := memledger.ParseMode(cfg.Ledger.InMode)
	if err != nil {
		return nil, err
	}
	out, err := memledger.ParseMode(cfg.Ledger.OutMode)
	if err != nil {
		return nil, err
	}
	l.SetInMode(in)
	l.SetOutMode(out)
	for who, amount := range cfg.Ledger.Balances {
		if err := l.Mint(asset.Address(who), amount); err != nil {
			return nil, err
		}
	}

	clk := NewClock(start)
	base := []vault.Option{
		vault.WithClock(clk.Now),
		vault.WithAnnualRateBps(cfg.Vault.AnnualRateBps),
		vault.WithAccrualOnWithdraw(cfg.Vault.AccrualOnWithdraw()),
		vault.WithAllowlist(ledger.NewAllowlist(cfg.Vault.Allowlist...)),
	}
	if j != nil {
		base = append(base, vault.WithJournal(j))
	}

	v, err := vault.New(l, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Sim{Vault: v, Ledger: l, Clock: clk}, nil
}

// Result is the outcome of one step. Err holds a vault failure, which does
// not stop the run.
type Result struct {
	Index  int
	Step   config.Step
	OpID   string
	Shares asset.Amount
	Amount asset.Amount
	Err    error
}

func (r Result) String() string {
	status := "ok"
	if r.Err != nil {
		status = r.Err.Error()
	}
	return fmt.Sprintf("#%d %s %s %d -> shares=%d amount=%d [%s]",
		r.Index, r.Step.Op, r.Step.Account, r.Step.Amount, r.Shares, r.Amount, status)
}

// Run executes steps in order. It returns early only on a malformed step
// or a simulator failure; vault errors are reported per step.
func (s *Sim) Run(ctx context.Context, steps []config.Step, log *zap.Logger) ([]Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]Result, 0, len(steps))
	for i, step := range steps {
		d, err := step.ParseDuration()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i, err)
		}
		s.Clock.Advance(d)

		r, err := s.apply(ctx, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i, err)
		}
		r.Index = i
		r.Step = step
		results = append(results, r)
		log.Debug("step", zap.Int("index", i), zap.String("op", step.Op), zap.Error(r.Err))
	}
	return results, nil
}

func (s *Sim) apply(ctx context.Context, step config.Step) (Result, error) {
	who := asset.Address(step.Account)
	var r Result

	switch step.Op {
	case "deposit":
		rec, err := s.Vault.Deposit(ctx, who, step.Amount)
		r.OpID, r.Shares, r.Amount, r.Err = rec.OpID, rec.Shares, rec.Received, err
	case "withdraw":
		rec, err := s.Vault.Withdraw(ctx, who, step.Amount)
		r.OpID, r.Shares, r.Amount, r.Err = rec.OpID, rec.Shares, rec.Payout, err
	case "emergency_withdraw":
		rec, err := s.Vault.EmergencyWithdraw(ctx, who)
		r.OpID, r.Shares, r.Amount, r.Err = rec.OpID, rec.Shares, rec.Payout, err
	case "accrue":
		a := s.Vault.AccrueRewards()
		r.Amount = a.Nominal
	case "mint":
		if err := s.Ledger.Mint(who, step.Amount); err != nil {
			return r, err
		}
	case "donate":
		if err := s.Ledger.Donate(step.Amount); err != nil {
			return r, err
		}
	case "set_fee":
		if err := s.Ledger.SetFeeBps(step.Amount); err != nil {
			return r, err
		}
	case "set_in_mode", "set_out_mode":
		m, err := memledger.ParseMode(step.Mode)
		if err != nil {
			return r, err
		}
		if step.Op == "set_in_mode" {
			s.Ledger.SetInMode(m)
		} else {
			s.Ledger.SetOutMode(m)
		}
	default:
		return r, fmt.Errorf("unknown op %q", step.Op)
	}
	return r, nil
}
