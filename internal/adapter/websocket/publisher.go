package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
)

// Publisher sends poll events to the session channel.
type Publisher struct {
	node      *centrifuge.Node
	wsMetrics *metrics.WebSocketMetrics
}

var _ domain.EventPublisher = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, wsMetrics *metrics.WebSocketMetrics) *Publisher {
	return &Publisher{node: node, wsMetrics: wsMetrics}
}

func (p *Publisher) PublishPollEvent(ctx context.Context, sessionID string, event domain.PollEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal poll event: %w", err)
	}

	channel := ChannelFor(sessionID)
	if _, err := p.node.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}

	if p.wsMetrics != nil {
		p.wsMetrics.MessagesPublished.WithLabelValues(string(event.Type)).Inc()
	}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "Poll event published",
			"session_id", sessionID,
			"type", event.Type,
			"subscribers", Subscribers(p.node, sessionID),
		)
	}
	return nil
}
