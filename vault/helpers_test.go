package vault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/journal"
	"github.com/rustyeddy/vault/ledger/memledger"
)

const custody asset.Address = "vault"

var ctx = context.Background()

func newVault(t *testing.T, opts ...Option) (*Vault, *memledger.Ledger) {
	t.Helper()
	l := memledger.New("usdx", custody)
	v, err := New(l, opts...)
	require.NoError(t, err)
	return v, l
}

func fund(t *testing.T, l *memledger.Ledger, who asset.Address, amount asset.Amount) {
	t.Helper()
	require.NoError(t, l.Mint(who, amount))
}

func deposit(t *testing.T, v *Vault, who asset.Address, amount asset.Amount) DepositReceipt {
	t.Helper()
	r, err := v.Deposit(ctx, who, amount)
	require.NoError(t, err)
	return r
}

// snapshot captures the share state so tests can assert nothing moved.
type snapshot struct {
	total    asset.Amount
	balances map[asset.Address]asset.Amount
}

func snap(v *Vault) snapshot {
	s := snapshot{total: v.TotalShares(), balances: map[asset.Address]asset.Amount{}}
	for _, h := range v.Holders() {
		s.balances[h.Holder] = h.Shares
	}
	return s
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memJournal keeps entries in memory.
type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	fail    bool
}

func (j *memJournal) Record(e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("disk full")
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Close() error { return nil }

func (j *memJournal) all() []journal.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]journal.Entry(nil), j.entries...)
}

// scriptLedger answers custody balance queries from a fixed script and
// accepts every transfer. It drives the vault into states an honest ledger
// never produces.
type scriptLedger struct {
	mu       sync.Mutex
	balances []asset.Amount
}

func (s *scriptLedger) Custody() asset.Address { return custody }

func (s *scriptLedger) BalanceOf(ctx context.Context, holder asset.Address) (asset.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.balances) == 0 {
		return 0, errors.New("script exhausted")
	}
	b := s.balances[0]
	s.balances = s.balances[1:]
	return b, nil
}

func (s *scriptLedger) TransferIn(context.Context, asset.Address, asset.Amount) (bool, error) {
	return true, nil
}

func (s *scriptLedger) TransferOut(context.Context, asset.Address, asset.Amount) (bool, error) {
	return true, nil
}

func (s *scriptLedger) push(b ...asset.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = append(s.balances, b...)
}
