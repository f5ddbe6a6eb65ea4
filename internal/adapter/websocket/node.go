package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
)

// NewNode creates the Centrifuge node. Connections are anonymous; each one
// gets a generated connection ID. Subscriptions are only accepted on valid
// token channels, and the node refuses connections beyond maxConnections.
func NewNode(wsMetrics *metrics.WebSocketMetrics, maxConnections int, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	var active atomic.Int64

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{
			Credentials: &centrifuge.Credentials{UserID: uuid.NewString()},
		}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		if maxConnections > 0 && active.Add(1) > int64(maxConnections) {
			active.Add(-1)
			slog.Warn("Connection limit reached, rejecting client", "client_id", client.ID(), "limit", maxConnections)
			client.Disconnect(centrifuge.DisconnectConnectionLimit)
			return
		}

		slog.Debug("Client connected", "client_id", client.ID())
		if wsMetrics != nil {
			wsMetrics.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if _, _, err := ParseChannel(e.Channel); err != nil {
				slog.Debug("Rejected subscription", "client_id", client.ID(), "channel", e.Channel, "error", err)
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorUnknownChannel)
				return
			}
			options := centrifuge.SubscribeOptions{EmitPresence: true}
			cb(centrifuge.SubscribeReply{Options: options}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			active.Add(-1)
			if wsMetrics != nil {
				wsMetrics.ActiveConnections.Dec()
			}
		})
	})

	return node, nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
