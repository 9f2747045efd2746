// Package publisher delivers domain events to NATS, or to the log when no broker is configured.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

const (
	defaultSubjectPrefix = "pulse"
	flushTimeout         = 2 * time.Second
)

// Publisher delivers one event downstream.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
	Close() error
}

// Subject returns the NATS subject an event is published on, e.g. "pulse.round.created".
func Subject(prefix string, t model.EventType) string {
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return prefix + "." + string(t)
}

// NATS publishes events as JSON on <prefix>.<event type>.
type NATS struct {
	conn   *nats.Conn
	prefix string
	log    logger.Logger
}

var _ Publisher = (*NATS)(nil)

// NewNATS connects to url.
func NewNATS(url, prefix string, log logger.Logger) (*NATS, error) {
	if url == "" {
		return nil, errors.New("empty nats url")
	}
	if log == nil {
		log = logger.Named("nats")
	}
	conn, err := nats.Connect(url,
		nats.Name("pulse"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NATS{conn: conn, prefix: prefix, log: log}, nil
}

// Publish encodes e and publishes it.
func (n *NATS) Publish(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.conn.Publish(Subject(n.prefix, e.Type), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() error {
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		n.log.Warn(context.Background(), "nats flush on close failed", logger.Error(err))
	}
	n.conn.Close()
	return nil
}

// Log writes events to the logger.
type Log struct {
	log    logger.Logger
	prefix string
}

var _ Publisher = (*Log)(nil)

// NewLog returns a Publisher that only logs.
func NewLog(prefix string, log logger.Logger) *Log {
	if log == nil {
		log = logger.Named("events")
	}
	return &Log{log: log, prefix: prefix}
}

// Publish logs e.
func (l *Log) Publish(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	l.log.Info(ctx, "domain event",
		logger.String("subject", Subject(l.prefix, e.Type)),
		logger.String("team_id", e.TeamID),
		logger.String("round_id", e.RoundID),
		logger.Int("count", e.Count),
	)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error { return nil }
