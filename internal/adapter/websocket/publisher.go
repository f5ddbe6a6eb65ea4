package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centrifugal/centrifuge"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// Publisher pushes fresh analysis results to the token's channel.
type Publisher struct {
	node      *centrifuge.Node
	wsMetrics *metrics.WebSocketMetrics
}

var _ domain.EventPublisher = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, wsMetrics *metrics.WebSocketMetrics) *Publisher {
	return &Publisher{node: node, wsMetrics: wsMetrics}
}

func (p *Publisher) PublishResult(_ context.Context, result domain.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}

	channel := Channel(result.Network, result.Token)
	if _, err := p.node.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}

	if p.wsMetrics != nil {
		p.wsMetrics.MessagesPublished.Inc()
	}
	return nil
}

// PresenceChecker reports live subscriber counts per token channel.
type PresenceChecker struct {
	node *centrifuge.Node
}

func NewPresenceChecker(node *centrifuge.Node) *PresenceChecker {
	return &PresenceChecker{node: node}
}

func (p *PresenceChecker) SubscriberCount(network domain.Network, addr string) int {
	stats, err := p.node.PresenceStats(Channel(network, addr))
	if err != nil {
		return 0
	}
	return stats.NumClients
}
