package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

const uniAddress = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"

func TestChannelRoundTrip(t *testing.T) {
	channel := Channel(domain.NetworkEthereum, uniAddress)
	assert.Equal(t, "sentiment:ethereum:"+uniAddress, channel)

	network, addr, err := ParseChannel(channel)
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkEthereum, network)
	assert.Equal(t, uniAddress, addr)
}

func TestParseChannel_Solana(t *testing.T) {
	const mint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	network, addr, err := ParseChannel("sentiment:solana:" + mint)
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkSolana, network)
	assert.Equal(t, mint, addr)
}

func TestParseChannel_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		channel string
	}{
		{"wrong prefix", "chat:ethereum:" + uniAddress},
		{"missing address", "sentiment:ethereum"},
		{"unsupported network", "sentiment:dogecoin:" + uniAddress},
		{"invalid address", "sentiment:ethereum:0xzz"},
		{"unnormalized address", "sentiment:ethereum:0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseChannel(tt.channel)
			assert.Error(t, err)
		})
	}
}
