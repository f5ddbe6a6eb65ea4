// Package websocket exposes live analysis results over Centrifuge. Clients
// subscribe to one channel per token and receive every fresh result as it is
// computed.
package websocket

import (
	"fmt"
	"strings"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/address"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

const channelPrefix = "sentiment"

// Channel names the live stream for one token. The address must already be
// normalized so cache keys and channels agree.
func Channel(network domain.Network, addr string) string {
	return channelPrefix + ":" + string(network) + ":" + addr
}

// ParseChannel validates a subscription channel and returns the token it
// refers to. The address part must be in its normalized form; otherwise two
// spellings of the same token would split subscribers across channels.
func ParseChannel(channel string) (domain.Network, string, error) {
	parts := strings.SplitN(channel, ":", 3)
	if len(parts) != 3 || parts[0] != channelPrefix {
		return "", "", fmt.Errorf("channel %q does not match %s:{network}:{address}", channel, channelPrefix)
	}

	network := domain.Network(parts[1])
	normalized, err := address.Validate(network, parts[2])
	if err != nil {
		return "", "", fmt.Errorf("channel %q: %w", channel, err)
	}
	if normalized != parts[2] {
		return "", "", fmt.Errorf("channel %q: address must be normalized to %q", channel, normalized)
	}

	return network, normalized, nil
}
