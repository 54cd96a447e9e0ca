package unlock

import (
	"strings"
	"testing"
)

func TestNetworkDescriptors(t *testing.T) {
	tests := []struct {
		name       string
		network    Network
		chainID    uint64
		chainIDHex string
		symbol     string
	}{
		{"XLayer", NetworkXLayer, 196, "0xc4", "OKB"},
		{"BaseMainnet", NetworkBaseMainnet, 8453, "0x2105", "ETH"},
		{"BaseSepolia", NetworkBaseSepolia, 84532, "0x14a34", "ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := GetNetworkConfig(tt.network)
			if err != nil {
				t.Fatalf("GetNetworkConfig(%s) error = %v", tt.network, err)
			}
			if desc.ChainID != tt.chainID {
				t.Errorf("ChainID = %d, want %d", desc.ChainID, tt.chainID)
			}
			if desc.ChainIDHex != tt.chainIDHex {
				t.Errorf("ChainIDHex = %s, want %s", desc.ChainIDHex, tt.chainIDHex)
			}
			if desc.NativeCurrency.Symbol != tt.symbol {
				t.Errorf("NativeCurrency.Symbol = %s, want %s", desc.NativeCurrency.Symbol, tt.symbol)
			}
			if len(desc.RPCURLs) == 0 {
				t.Error("RPCURLs is empty")
			}
			if len(desc.BlockExplorerURLs) == 0 {
				t.Error("BlockExplorerURLs is empty")
			}
		})
	}
}

func TestGetNetworkConfigUnknown(t *testing.T) {
	_, err := GetNetworkConfig(Network("polygon"))
	if err == nil {
		t.Fatal("expected error for unknown network")
	}
	if CodeOf(err) != ErrCodeUnsupportedNetwork {
		t.Errorf("code = %s, want %s", CodeOf(err), ErrCodeUnsupportedNetwork)
	}
}

// TestTokenContractTotality walks every network, tier and token cell: a
// supported pair always yields a contract address and an unsupported pair
// never panics.
func TestTokenContractTotality(t *testing.T) {
	tiers := []Tier{TierProduction, TierTest}
	tokens := []Token{TokenUSDC, TokenUSDT}

	for _, network := range Networks() {
		for _, tier := range tiers {
			for _, token := range tokens {
				contract, ok := GetTokenContract(network, token, tier)
				wantSupported := token == TokenUSDC || network == NetworkXLayer
				if ok != wantSupported {
					t.Errorf("GetTokenContract(%s, %s, %s) ok = %v, want %v", network, token, tier, ok, wantSupported)
				}
				if ok && !strings.HasPrefix(contract, "0x") {
					t.Errorf("GetTokenContract(%s, %s, %s) = %q, not hex", network, token, tier, contract)
				}
				if !ok && contract != "" {
					t.Errorf("unsupported pair returned contract %q", contract)
				}
			}
		}
	}
}

func TestGetSupportedTokens(t *testing.T) {
	tests := []struct {
		name    string
		network Network
		want    []Token
	}{
		{"XLayerBothStablecoins", NetworkXLayer, []Token{TokenUSDC, TokenUSDT}},
		{"BaseMainnetUSDCOnly", NetworkBaseMainnet, []Token{TokenUSDC}},
		{"BaseSepoliaUSDCOnly", NetworkBaseSepolia, []Token{TokenUSDC}},
		{"UnknownNetworkEmpty", Network("polygon"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSupportedTokens(tt.network, TierProduction)
			if len(got) != len(tt.want) {
				t.Fatalf("GetSupportedTokens(%s) = %v, want %v", tt.network, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestDomainParams verifies the per-token EIP-712 domain table, including
// Base Sepolia's deviating USDC name.
func TestDomainParams(t *testing.T) {
	tests := []struct {
		name        string
		network     Network
		token       Token
		wantName    string
		wantVersion string
		wantOK      bool
	}{
		{"XLayerUSDC", NetworkXLayer, TokenUSDC, "USD Coin", "2", true},
		{"XLayerUSDT", NetworkXLayer, TokenUSDT, "Tether USD", "1", true},
		{"BaseMainnetUSDC", NetworkBaseMainnet, TokenUSDC, "USD Coin", "2", true},
		{"BaseSepoliaUSDC", NetworkBaseSepolia, TokenUSDC, "USDC", "2", true},
		{"BaseMainnetUSDT", NetworkBaseMainnet, TokenUSDT, "", "", false},
		{"UnknownNetwork", Network("polygon"), TokenUSDC, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := GetDomainParams(tt.network, tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if params.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", params.Name, tt.wantName)
			}
			if params.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", params.Version, tt.wantVersion)
			}
		})
	}
}

func TestDefaultToken(t *testing.T) {
	if got := DefaultToken(NetworkXLayer); got != TokenUSDT {
		t.Errorf("DefaultToken(xlayer) = %s, want %s", got, TokenUSDT)
	}
	if got := DefaultToken(NetworkBaseMainnet); got != TokenUSDC {
		t.Errorf("DefaultToken(base-mainnet) = %s, want %s", got, TokenUSDC)
	}
	if got := DefaultToken(NetworkBaseSepolia); got != TokenUSDC {
		t.Errorf("DefaultToken(base-sepolia) = %s, want %s", got, TokenUSDC)
	}
}

func TestDefaultNetwork(t *testing.T) {
	tests := []struct {
		authMethod string
		want       Network
	}{
		{"okx", NetworkXLayer},
		{"metamask", NetworkBaseMainnet},
		{"coinbase", NetworkBaseMainnet},
		{"", NetworkBaseMainnet},
	}

	for _, tt := range tests {
		if got := DefaultNetwork(tt.authMethod); got != tt.want {
			t.Errorf("DefaultNetwork(%q) = %s, want %s", tt.authMethod, got, tt.want)
		}
	}
}

func TestCurrentTier(t *testing.T) {
	t.Setenv(TierEnvVar, "")
	if got := CurrentTier(); got != TierProduction {
		t.Errorf("CurrentTier() with empty env = %s, want %s", got, TierProduction)
	}

	t.Setenv(TierEnvVar, string(TierTest))
	if got := CurrentTier(); got != TierTest {
		t.Errorf("CurrentTier() with test env = %s, want %s", got, TierTest)
	}

	// Unknown values fall back to production.
	t.Setenv(TierEnvVar, "staging")
	if got := CurrentTier(); got != TierProduction {
		t.Errorf("CurrentTier() with unknown env = %s, want %s", got, TierProduction)
	}
}
