package flow

import (
	"github.com/shopspring/decimal"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/provider"
)

// BalanceLoading is the session balance placeholder while a background
// refresh is in flight. Affordability checks treat it as "unknown", never as
// zero.
const BalanceLoading = "..."

// WalletSession is the single piece of mutable wallet state. It is created
// by the orchestrator's connect transition, written only by the
// orchestrator, and destroyed on explicit disconnect. The address is a
// snapshot: it is re-read from the provider immediately before signing
// because wallets can switch active accounts at any time.
type WalletSession struct {
	// Address is the account the wallet reported at connection time.
	Address string

	// Handle is the located provider the session is bound to.
	Handle *provider.Handle

	// Kind is the wallet family the handle was resolved for.
	Kind provider.Kind

	// ConnectedNetwork is the network the wallet was last switched to.
	ConnectedNetwork unlock.Network

	// LastKnownBalance is the display balance, BalanceLoading while a
	// refresh is pending.
	LastKnownBalance string
}

// Connected reports whether the session holds a usable wallet connection.
func (s *WalletSession) Connected() bool {
	return s != nil && s.Address != "" && s.Handle != nil
}

// InsufficientFor reports whether the session's balance is known to fall
// short of the given atomic amount. It is false while the wallet is not
// connected or the balance has not resolved past its loading placeholder:
// an unknown balance must not disable the pay button.
func (s *WalletSession) InsufficientFor(atomicAmount string, decimals int) bool {
	if !s.Connected() {
		return false
	}
	if s.LastKnownBalance == "" || s.LastKnownBalance == BalanceLoading {
		return false
	}

	balance, err := decimal.NewFromString(s.LastKnownBalance)
	if err != nil {
		return false
	}
	atomic, err := decimal.NewFromString(atomicAmount)
	if err != nil {
		return false
	}
	required := atomic.Shift(-int32(decimals))

	return balance.LessThan(required)
}

// ShortAddress renders a wallet address for display: 0x1234…abcd.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
