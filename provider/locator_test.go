package provider

import (
	"context"
	"encoding/json"
	"testing"
)

// stubProvider is a named no-op provider so tests can assert which injected
// slot the locator picked.
type stubProvider struct {
	name string
}

func (s *stubProvider) Request(context.Context, string, ...interface{}) (json.RawMessage, error) {
	return nil, nil
}

func handleFor(name string, flags Flags) *Handle {
	return &Handle{Provider: &stubProvider{name: name}, Flags: flags}
}

func pickedName(t *testing.T, h *Handle) string {
	t.Helper()
	stub, ok := h.Provider.(*stubProvider)
	if !ok {
		t.Fatalf("unexpected provider type %T", h.Provider)
	}
	return stub.name
}

func TestDetect(t *testing.T) {
	metamaskFlags := Flags{IsMetaMask: true}
	okxFlags := Flags{IsOKXWallet: true}
	coinbaseFlags := Flags{IsCoinbaseWallet: true}
	// OKX is known to present MetaMask's flag alongside its own.
	spoofedFlags := Flags{IsMetaMask: true, IsOKXWallet: true}

	tests := []struct {
		name     string
		surface  Surface
		kind     Kind
		wantOK   bool
		wantName string
	}{
		{
			name:     "SoleSharedOccupant",
			surface:  Surface{Shared: handleFor("shared-mm", metamaskFlags)},
			kind:     KindMetaMask,
			wantOK:   true,
			wantName: "shared-mm",
		},
		{
			name:    "NothingInstalled",
			surface: Surface{},
			kind:    KindMetaMask,
			wantOK:  false,
		},
		{
			name: "PrivateNamespaceWinsOverHijackedSharedSlot",
			surface: Surface{
				Shared:  handleFor("shared-okx", spoofedFlags),
				Private: map[Kind]*Handle{KindMetaMask: handleFor("private-mm", metamaskFlags)},
			},
			kind:     KindMetaMask,
			wantOK:   true,
			wantName: "private-mm",
		},
		{
			name: "SpoofedSharedSlotRejected",
			surface: Surface{
				Shared: handleFor("shared-okx", spoofedFlags),
			},
			kind:   KindMetaMask,
			wantOK: false,
		},
		{
			name: "MultiplexedExclusiveMatch",
			surface: Surface{
				Shared: handleFor("shared-mux", metamaskFlags),
				Multiplexed: []*Handle{
					handleFor("mux-spoof", spoofedFlags),
					handleFor("mux-cb", coinbaseFlags),
					handleFor("mux-mm", metamaskFlags),
				},
			},
			kind:     KindMetaMask,
			wantOK:   true,
			wantName: "mux-mm",
		},
		{
			name: "MultiplexedSkipsSpoofedEntry",
			surface: Surface{
				Multiplexed: []*Handle{handleFor("mux-spoof", spoofedFlags)},
			},
			kind:   KindMetaMask,
			wantOK: false,
		},
		{
			name: "MultiplexedListDisablesBareSharedFallback",
			surface: Surface{
				Shared:      handleFor("shared-cb", coinbaseFlags),
				Multiplexed: []*Handle{handleFor("mux-mm", metamaskFlags)},
			},
			kind:   KindCoinbase,
			wantOK: false,
		},
		{
			name: "PrivateNamespaceWithoutFlags",
			surface: Surface{
				Private: map[Kind]*Handle{KindOKX: handleFor("private-okx", Flags{})},
			},
			kind:     KindOKX,
			wantOK:   true,
			wantName: "private-okx",
		},
		{
			name: "PrivateNamespaceWithForeignFlagsRejected",
			surface: Surface{
				Private: map[Kind]*Handle{KindOKX: handleFor("private-imposter", coinbaseFlags)},
			},
			kind:   KindOKX,
			wantOK: false,
		},
		{
			name: "OKXSpoofStillResolvesAsOKX",
			surface: Surface{
				Shared: handleFor("shared-okx", okxFlags),
			},
			kind:     KindOKX,
			wantOK:   true,
			wantName: "shared-okx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := Detect(tt.surface, tt.kind)
			if ok != tt.wantOK {
				t.Fatalf("Detect() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				if h != nil {
					t.Error("Detect() returned a handle with ok=false")
				}
				return
			}
			if got := pickedName(t, h); got != tt.wantName {
				t.Errorf("Detect() picked %s, want %s", got, tt.wantName)
			}
		})
	}
}

func TestFlagsExclusive(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		kind  Kind
		want  bool
	}{
		{"SingleMatch", Flags{IsMetaMask: true}, KindMetaMask, true},
		{"SingleMismatch", Flags{IsMetaMask: true}, KindOKX, false},
		{"DoubleClaim", Flags{IsMetaMask: true, IsOKXWallet: true}, KindMetaMask, false},
		{"NoFlags", Flags{}, KindMetaMask, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.Exclusive(tt.kind); got != tt.want {
				t.Errorf("Exclusive(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}
