// Package notify publishes export completion events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docexport/internal/config"
	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/export"
	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/retry"
	"git.home.luguber.info/inful/docexport/internal/version"
)

// EventExportCompleted is the event type carried by every message.
const EventExportCompleted = "export.completed"

// Event is the JSON payload published after an export run.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Summary   export.Summary `json:"summary"`
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher sends export events to a NATS subject.
type Publisher struct {
	conn    conn
	subject string
	policy  retry.Policy
	now     func() time.Time
}

// Connect dials the configured NATS server.
func Connect(cfg config.NotifyConfig) (*Publisher, error) {
	if cfg.NATSURL == "" {
		return nil, derrors.New(derrors.CategoryNotify, derrors.SeverityError, "nats url is required")
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("docexport"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3))
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryNotify, derrors.SeverityError, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL)
	}
	slog.Info("NATS publisher connected", "url", nc.ConnectedUrlRedacted(), "subject", cfg.Subject)
	return newPublisher(nc, cfg.Subject, retry.FromNotifyConfig(cfg)), nil
}

func newPublisher(c conn, subject string, policy retry.Policy) *Publisher {
	if subject == "" {
		subject = config.DefaultNotifySubject
	}
	return &Publisher{conn: c, subject: subject, policy: policy, now: time.Now}
}

// ExportCompleted publishes the summary and waits for the server to
// acknowledge the flush, retrying per the configured policy.
func (p *Publisher) ExportCompleted(ctx context.Context, summary export.Summary) error {
	data, err := json.Marshal(Event{
		Type:      EventExportCompleted,
		Timestamp: p.now().UTC(),
		Version:   version.Version,
		Summary:   summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.policy.Do(ctx, "publish export event", func(ctx context.Context) error {
		if err := p.conn.Publish(p.subject, data); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.conn.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Published export event", logfields.RunID(summary.RunID), "subject", p.subject, "outcome", summary.Outcome)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
