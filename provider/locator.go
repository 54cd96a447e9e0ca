package provider

// Surface is a snapshot of the host's wallet injection points. The shared
// slot (window.ethereum in a browser host) is a battleground: a second
// extension either replaces it, wraps the incumbent in a providers list, or
// leaves a secondary namespace behind. The locator never trusts a positive
// identity flag alone.
type Surface struct {
	// Shared is the occupant of the shared injection slot, if any.
	Shared *Handle

	// Multiplexed is the providers list some extensions publish on the
	// shared slot when several wallets coexist.
	Multiplexed []*Handle

	// Private maps wallet kinds to the namespaces they inject for
	// themselves (okxwallet, metamask, coinbaseWalletExtension).
	Private map[Kind]*Handle
}

// detectStrategy attempts to locate the provider for a kind; nil means the
// strategy has no answer and the next one runs.
type detectStrategy func(Surface, Kind) *Handle

// detectStrategies is the ordered resolution chain. Order matters: a wallet's
// own namespace cannot be spoofed by another extension, the multiplexed list
// requires an exclusive flag match, and the bare shared slot is trusted last
// and only when its identity is unambiguous.
var detectStrategies = []detectStrategy{
	detectPrivateNamespace,
	detectMultiplexed,
	detectSharedExclusive,
}

// Detect resolves the injected provider for the requested wallet kind.
// ok is false when the extension is not installed; callers must treat that as
// a terminal "not installed" outcome, not a transient error.
func Detect(surface Surface, kind Kind) (*Handle, bool) {
	for _, strategy := range detectStrategies {
		if h := strategy(surface, kind); h != nil {
			return h, true
		}
	}
	return nil, false
}

// detectPrivateNamespace prefers the namespace a wallet injects for itself.
// A private namespace either carries no flags (older extensions) or must
// match the kind it claims to serve.
func detectPrivateNamespace(surface Surface, kind Kind) *Handle {
	h, ok := surface.Private[kind]
	if !ok || h == nil {
		return nil
	}
	if h.Flags != (Flags{}) && !h.Flags.Matches(kind) {
		return nil
	}
	return h
}

// detectMultiplexed scans the shared slot's providers list for the entry
// whose identity flag matches the kind exclusively. Entries that claim more
// than one identity are spoofing and are skipped.
func detectMultiplexed(surface Surface, kind Kind) *Handle {
	for _, h := range surface.Multiplexed {
		if h != nil && h.Flags.Exclusive(kind) {
			return h
		}
	}
	return nil
}

// detectSharedExclusive accepts the lone occupant of the shared slot, but
// only when its single identity flag matches the requested kind. A competing
// extension holding the slot yields nil here; its secondary namespace was
// already consulted by detectPrivateNamespace.
func detectSharedExclusive(surface Surface, kind Kind) *Handle {
	if len(surface.Multiplexed) > 0 || surface.Shared == nil {
		return nil
	}
	if surface.Shared.Flags.Exclusive(kind) {
		return surface.Shared
	}
	return nil
}
