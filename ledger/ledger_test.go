package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/vault/ledger"
	"github.com/rustyeddy/vault/ledger/memledger"
)

type anonymous struct{ ledger.AssetLedger }

func TestAllowlistPermit(t *testing.T) {
	t.Parallel()

	audited := memledger.New("usdx", "vault")
	other := memledger.New("shady", "vault")

	tests := []struct {
		name    string
		list    ledger.Allowlist
		l       ledger.AssetLedger
		allowed bool
	}{
		{"empty list admits all", nil, other, true},
		{"listed", ledger.NewAllowlist("usdx"), audited, true},
		{"not listed", ledger.NewAllowlist("usdx"), other, false},
		{"unnamed ledger", ledger.NewAllowlist("usdx"), anonymous{audited}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.list.Permit(tt.l)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ledger.ErrNotAllowed)
			}
		})
	}
}
