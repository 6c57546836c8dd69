package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
)

const channelPrefix = "polls:"

// ChannelFor names the channel carrying the poll events of a session.
func ChannelFor(sessionID string) string {
	return channelPrefix + sessionID
}

// ViewSource returns the poll of a session as one participant sees it.
type ViewSource interface {
	GetView(ctx context.Context, sessionID, participant string) (*domain.PollView, error)
}

// ViewSourceFunc adapts a function to ViewSource.
type ViewSourceFunc func(ctx context.Context, sessionID, participant string) (*domain.PollView, error)

func (f ViewSourceFunc) GetView(ctx context.Context, sessionID, participant string) (*domain.PollView, error) {
	return f(ctx, sessionID, participant)
}

// connectData is what clients send when opening the connection.
type connectData struct {
	SessionID   string `json:"sessionId"`
	Participant string `json:"participant"`
}

func parseConnectData(data []byte) (connectData, error) {
	var cd connectData
	if len(data) == 0 {
		return cd, errors.New("missing connect data")
	}
	if err := json.Unmarshal(data, &cd); err != nil {
		return cd, fmt.Errorf("decode connect data: %w", err)
	}
	if cd.SessionID == "" {
		return cd, errors.New("connect data has no sessionId")
	}
	return cd, nil
}

func NewNode(views ViewSource, wsMetrics *metrics.WebSocketMetrics, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting(views, wsMetrics))
	node.OnConnect(onConnect(wsMetrics))

	return node, nil
}

// onConnecting subscribes the client to its session channel server-side and
// hands back the current poll, if any, as connect reply data.
func onConnecting(views ViewSource, wsMetrics *metrics.WebSocketMetrics) func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	return func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		cd, err := parseConnectData(e.Data)
		if err != nil {
			slog.WarnContext(ctx, "Rejecting websocket connection", "client_id", e.ClientID, "error", err)
			if wsMetrics != nil {
				wsMetrics.RejectedConnections.Inc()
			}
			return centrifuge.ConnectReply{}, centrifuge.DisconnectBadRequest
		}

		reply := centrifuge.ConnectReply{
			Credentials: &centrifuge.Credentials{UserID: cd.Participant},
			Subscriptions: map[string]centrifuge.SubscribeOptions{
				ChannelFor(cd.SessionID): {EmitPresence: true},
			},
		}

		view, err := views.GetView(ctx, cd.SessionID, cd.Participant)
		switch {
		case err == nil:
			data, err := json.Marshal(view)
			if err != nil {
				return centrifuge.ConnectReply{}, fmt.Errorf("marshal poll view: %w", err)
			}
			reply.Data = data
		case errors.Is(err, domain.ErrPollNotFound):
		default:
			slog.WarnContext(ctx, "Failed to load poll for new connection", "session_id", cd.SessionID, "error", err)
		}
		return reply, nil
	}
}

func onConnect(wsMetrics *metrics.WebSocketMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID(), "user_id", client.UserID())

		if wsMetrics != nil {
			wsMetrics.ActiveConnections.Inc()
		}

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if wsMetrics != nil {
				wsMetrics.ActiveConnections.Dec()
			}
		})
	}
}

// RedisConnection is the Redis server shared by every instance's node.
type RedisConnection struct {
	Address   string
	User      string
	Password  string
	DB        int
	TLSConfig *tls.Config
}

func shardConfig(rc RedisConnection) centrifuge.RedisShardConfig {
	return centrifuge.RedisShardConfig{
		Address:   rc.Address,
		User:      rc.User,
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: rc.TLSConfig,
	}
}

// SetupRedis lets several instances share subscribers through Redis.
func SetupRedis(node *centrifuge.Node, rc RedisConnection) error {
	shard, err := centrifuge.NewRedisShard(node, shardConfig(rc))
	if err != nil {
		return fmt.Errorf("create redis shard: %w", err)
	}

	broker, err := centrifuge.NewRedisBroker(node, centrifuge.RedisBrokerConfig{Prefix: "callpolls", Shards: []*centrifuge.RedisShard{shard}})
	if err != nil {
		return fmt.Errorf("create redis broker: %w", err)
	}
	node.SetBroker(broker)

	presence, err := centrifuge.NewRedisPresenceManager(node, centrifuge.RedisPresenceManagerConfig{Prefix: "callpolls", Shards: []*centrifuge.RedisShard{shard}})
	if err != nil {
		return fmt.Errorf("create redis presence manager: %w", err)
	}
	node.SetPresenceManager(presence)

	return nil
}

// Subscribers reports how many clients follow the polls of a session.
func Subscribers(node *centrifuge.Node, sessionID string) int {
	stats, err := node.PresenceStats(ChannelFor(sessionID))
	if err != nil {
		return 0
	}
	return stats.NumClients
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug, centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
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
