package balance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	unlock "github.com/copus-io/unlock-go"
)

// fakeProvider answers eth_chainId with a fixed chain and eth_call with a
// scripted result.
type fakeProvider struct {
	chainIDHex string
	callResult string
	callErr    error
	lastCall   map[string]interface{}
}

func (f *fakeProvider) Request(_ context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	switch method {
	case "eth_chainId":
		return json.RawMessage(`"` + f.chainIDHex + `"`), nil
	case "eth_call":
		if len(params) > 0 {
			raw, _ := json.Marshal(params[0])
			f.lastCall = map[string]interface{}{}
			_ = json.Unmarshal(raw, &f.lastCall)
		}
		if f.callErr != nil {
			return nil, f.callErr
		}
		return json.RawMessage(`"` + f.callResult + `"`), nil
	default:
		return nil, errors.New("unexpected method: " + method)
	}
}

const testAddress = "0x1111111111111111111111111111111111111111"

func TestFetchTokenBalance(t *testing.T) {
	oracle := NewOracle(WithTier(unlock.TierProduction))

	tests := []struct {
		name     string
		provider *fakeProvider
		network  unlock.Network
		token    unlock.Token
		want     string
	}{
		{
			name: "OneUSDT",
			provider: &fakeProvider{
				chainIDHex: "0xc4",
				callResult: "0x00000000000000000000000000000000000000000000000000000000000f4240",
			},
			network: unlock.NetworkXLayer,
			token:   unlock.TokenUSDT,
			want:    "1.00",
		},
		{
			name: "FractionalUSDC",
			provider: &fakeProvider{
				chainIDHex: "0x2105",
				callResult: "0x1312d3", // 1249999 smallest units
			},
			network: unlock.NetworkBaseMainnet,
			token:   unlock.TokenUSDC,
			want:    "1.25",
		},
		{
			name:     "EmptyResultIsZero",
			provider: &fakeProvider{chainIDHex: "0xc4", callResult: "0x"},
			network:  unlock.NetworkXLayer,
			token:    unlock.TokenUSDT,
			want:     "0.00",
		},
		{
			name:     "RPCFailureIsZero",
			provider: &fakeProvider{chainIDHex: "0xc4", callErr: errors.New("execution reverted")},
			network:  unlock.NetworkXLayer,
			token:    unlock.TokenUSDT,
			want:     "0.00",
		},
		{
			name:     "GarbageResultIsZero",
			provider: &fakeProvider{chainIDHex: "0xc4", callResult: "0xnothex"},
			network:  unlock.NetworkXLayer,
			token:    unlock.TokenUSDT,
			want:     "0.00",
		},
		{
			name:     "TokenNotDeployedIsZero",
			provider: &fakeProvider{chainIDHex: "0x2105", callResult: "0x0"},
			network:  unlock.NetworkBaseMainnet,
			token:    unlock.TokenUSDT,
			want:     "0.00",
		},
		{
			name:     "UnknownNetworkIsZero",
			provider: &fakeProvider{},
			network:  unlock.Network("polygon"),
			token:    unlock.TokenUSDC,
			want:     "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := oracle.FetchTokenBalance(context.Background(), tt.provider, testAddress, tt.network, tt.token)
			if got != tt.want {
				t.Errorf("FetchTokenBalance() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchTokenBalanceCallShape(t *testing.T) {
	p := &fakeProvider{
		chainIDHex: "0xc4",
		callResult: "0x0",
	}
	oracle := NewOracle(WithTier(unlock.TierProduction))
	oracle.FetchTokenBalance(context.Background(), p, testAddress, unlock.NetworkXLayer, unlock.TokenUSDT)

	if p.lastCall == nil {
		t.Fatal("eth_call never issued")
	}
	contract, _ := unlock.GetTokenContract(unlock.NetworkXLayer, unlock.TokenUSDT, unlock.TierProduction)
	if p.lastCall["to"] != contract {
		t.Errorf("call to = %v, want %s", p.lastCall["to"], contract)
	}
	data, _ := p.lastCall["data"].(string)
	if !strings.HasPrefix(data, "0x70a08231") {
		t.Errorf("call data %q does not start with the balanceOf selector", data)
	}
	if !strings.HasSuffix(strings.ToLower(data), strings.ToLower(strings.TrimPrefix(testAddress, "0x"))) {
		t.Errorf("call data %q does not end with the padded address", data)
	}
}

func TestParseHexAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Zero", "0x0", "0"},
		{"Padded32Bytes", "0x00000000000000000000000000000000000000000000000000000000000186a0", "100000"},
		{"BarePrefix", "0x", "0"},
		{"Empty", "", "0"},
		{"Whitespace", "  0x10  ", "16"},
		{"NotHex", "0xzz", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseHexAmount(tt.input); got.String() != tt.want {
				t.Errorf("parseHexAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
