package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/models"
)

// ConnectionStatus represents the current state of the Socket Mode connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
)

var errDisconnectRequested = errors.New("server requested disconnect")

// EventHandler receives decoded channel events. Each call runs on its own
// goroutine, so implementations must be safe for concurrent use.
type EventHandler interface {
	HandleMessage(ctx context.Context, ev models.MessageEvent)
	HandleReaction(ctx context.Context, ev models.ReactionEvent)
	HandleMention(ctx context.Context, ev models.MentionEvent)
}

// URLOpener obtains a fresh Socket Mode websocket URL.
type URLOpener interface {
	OpenSocketURL(ctx context.Context) (string, error)
}

// SocketClient maintains the Socket Mode connection. It acknowledges every
// envelope as soon as it is read and then hands the event to the handler.
type SocketClient struct {
	opener  URLOpener
	handler EventHandler
	logger  *zap.Logger
	backoff func(attempt int) time.Duration

	mu             sync.RWMutex
	status         ConnectionStatus
	connectedSince *time.Time

	inflight sync.WaitGroup
}

// NewSocketClient creates a Socket Mode client.
func NewSocketClient(opener URLOpener, handler EventHandler, logger *zap.Logger) *SocketClient {
	return &SocketClient{
		opener:  opener,
		handler: handler,
		logger:  logger.Named("socketmode"),
		backoff: backoffDuration,
		status:  StatusDisconnected,
	}
}

// Start connects and serves events, reconnecting with exponential backoff
// whenever the connection drops. Blocks until ctx is cancelled and all
// dispatched handlers have returned.
func (c *SocketClient) Start(ctx context.Context) error {
	defer func() {
		c.setStatus(StatusDisconnected)
		c.inflight.Wait()
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if attempt == 0 {
			c.setStatus(StatusConnecting)
		} else {
			c.setStatus(StatusReconnecting)
		}

		err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// Slack rotates connections routinely; reconnect right away.
		if errors.Is(err, errDisconnectRequested) {
			c.logger.Info("Socket Mode connection refresh requested", zap.Error(err))
			attempt = 0
			continue
		}

		c.setStatus(StatusReconnecting)
		attempt++

		backoff := c.backoff(attempt)
		c.logger.Warn("Socket Mode disconnected, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Status returns the current connection status.
func (c *SocketClient) Status() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// ConnectedSince returns when the current connection was established.
func (c *SocketClient) ConnectedSince() *time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectedSince
}

func (c *SocketClient) setStatus(s ConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
	if s != StatusConnected {
		c.connectedSince = nil
	}
}

// connectAndServe opens one websocket connection, waits for hello and then
// serves envelopes until the connection drops or ctx is cancelled.
func (c *SocketClient) connectAndServe(ctx context.Context) error {
	wsURL, err := c.opener.OpenSocketURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to open socket mode connection: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial socket mode url: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	conn.SetReadLimit(1024 * 1024)

	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	hello, err := ParseEnvelope(data)
	if err != nil {
		return fmt.Errorf("failed to parse hello: %w", err)
	}
	if hello.Type != TypeHello {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}

	now := time.Now()
	c.mu.Lock()
	c.status = StatusConnected
	c.connectedSince = &now
	c.mu.Unlock()

	fields := []zap.Field{zap.Int("num_connections", hello.NumConnections)}
	if hello.DebugInfo != nil {
		fields = append(fields, zap.String("host", hello.DebugInfo.Host))
	}
	c.logger.Info("Socket Mode connected", fields...)

	return c.messageLoop(ctx, conn)
}

func (c *SocketClient) messageLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("websocket read error: %w", err)
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			c.logger.Error("Failed to parse socket mode frame", zap.Error(err))
			continue
		}

		if env.EnvelopeID != "" {
			if err := c.writeJSON(ctx, conn, Ack{EnvelopeID: env.EnvelopeID}); err != nil {
				return fmt.Errorf("failed to ack envelope %s: %w", env.EnvelopeID, err)
			}
		}

		switch env.Type {
		case TypeEventsAPI:
			if env.RetryAttempt > 0 {
				c.logger.Debug("Redelivered envelope",
					zap.String("envelope_id", env.EnvelopeID),
					zap.Int("retry_attempt", env.RetryAttempt),
					zap.String("retry_reason", env.RetryReason),
				)
			}
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				c.dispatch(ctx, env)
			}()
		case TypeDisconnect:
			return fmt.Errorf("%w: %s", errDisconnectRequested, env.Reason)
		case TypeHello:
			// Duplicate hello after a server-side refresh.
		default:
			c.logger.Debug("Ignoring socket mode frame", zap.String("type", env.Type))
		}
	}
}

// dispatch decodes an events_api payload and calls the matching handler.
func (c *SocketClient) dispatch(ctx context.Context, env *Envelope) {
	logger := c.logger.With(zap.String("envelope_id", env.EnvelopeID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event handler panicked", zap.Any("panic", r))
		}
	}()

	outer, err := slackevents.ParseEvent(json.RawMessage(env.Payload), slackevents.OptionNoVerifyToken())
	if err != nil {
		logger.Error("Failed to decode events_api payload", zap.Error(err))
		return
	}
	if outer.Type != slackevents.CallbackEvent {
		logger.Debug("Ignoring non-callback event", zap.String("type", outer.Type))
		return
	}

	// A redelivered message or mention was already seen on an earlier
	// attempt; handling it again would post a second prompt or reply.
	// Reactions stay idempotent since approval removes the pending item.
	switch ev := outer.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if env.RetryAttempt > 0 {
			logger.Debug("Dropping redelivered message", zap.Int("retry_attempt", env.RetryAttempt))
			return
		}
		c.handler.HandleMessage(ctx, messageFromSlack(ev))
	case *slackevents.ReactionAddedEvent:
		c.handler.HandleReaction(ctx, reactionFromSlack(ev))
	case *slackevents.AppMentionEvent:
		if env.RetryAttempt > 0 {
			logger.Debug("Dropping redelivered mention", zap.Int("retry_attempt", env.RetryAttempt))
			return
		}
		c.handler.HandleMention(ctx, mentionFromSlack(ev))
	default:
		logger.Debug("Ignoring event", zap.String("inner_type", outer.InnerEvent.Type))
	}
}

func (c *SocketClient) writeJSON(ctx context.Context, conn *websocket.Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// backoffDuration calculates exponential backoff with jitter.
// Base: 1s, max: 60s, jitter: ±25%.
func backoffDuration(attempt int) time.Duration {
	base := math.Pow(2, float64(attempt-1))
	seconds := math.Min(base, 60)
	jitter := seconds * 0.25 * (2*rand.Float64() - 1) //nolint:gosec
	return time.Duration((seconds + jitter) * float64(time.Second))
}
