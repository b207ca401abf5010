// Package journal is an append-only audit trail of vault operations. The
// vault never reloads its accounting state from it.
package journal

import (
	"time"

	"github.com/rustyeddy/vault/asset"
)

type Kind string

const (
	KindDeposit           Kind = "deposit"
	KindWithdraw          Kind = "withdraw"
	KindEmergencyWithdraw Kind = "emergency_withdraw"
	KindAccrue            Kind = "accrue"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Entry records one attempted vault operation, successful or not.
type Entry struct {
	OpID    string
	Time    time.Time
	Kind    Kind
	Account asset.Address

	// Requested is the nominal deposit amount or the shares asked to redeem.
	Requested asset.Amount
	// Amount is the measured amount received on deposit, or the payout
	// requested from the ledger on withdrawal.
	Amount      asset.Amount
	Shares      asset.Amount
	TotalShares asset.Amount

	Status Status
	Error  string
}

type Journal interface {
	Record(Entry) error
	Close() error
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Record(Entry) error { return nil }
func (Discard) Close() error       { return nil }
