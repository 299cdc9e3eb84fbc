// Package notify publishes accepted community reports to RabbitMQ, where the
// push notification workers pick them up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// ReportEvent is the message body published for every accepted report.
type ReportEvent struct {
	Type       string    `json:"type"`
	ReportID   string    `json:"reportId"`
	Timestamp  time.Time `json:"timestamp"`
	Conditions []string  `json:"conditions"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	UserID     string    `json:"userId"`
	Temp       *float64  `json:"temp,omitempty"`
}

// NewReportEvent builds the published payload for r.
func NewReportEvent(r community.Report) ReportEvent {
	conds := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		conds[i] = string(c)
	}
	return ReportEvent{
		Type:       "report.submitted",
		ReportID:   r.ID,
		Timestamp:  r.Timestamp.UTC(),
		Conditions: conds,
		Lat:        r.Lat,
		Lng:        r.Lng,
		UserID:     r.UserID,
		Temp:       r.Temp,
	}
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements community.Notifier on a RabbitMQ direct exchange.
type Publisher struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
}

// NewPublisher dials RabbitMQ and declares a durable direct exchange.
func NewPublisher(amqpURL, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// ReportSubmitted publishes r as a persistent JSON message.
func (p *Publisher) ReportSubmitted(ctx context.Context, r community.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(NewReportEvent(r))
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	err = p.channel.Publish(
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    r.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish report event: %w", err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	var err error
	if p.channel != nil {
		if cerr := p.channel.Close(); cerr != nil {
			log.WithError(cerr).Warn("notify: failed to close channel")
			err = cerr
		}
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil {
			log.WithError(cerr).Warn("notify: failed to close connection")
			if err == nil {
				err = cerr
			}
		}
	}
	return err
}

// LogNotifier logs reports instead of publishing them; used when no broker
// is configured.
type LogNotifier struct{}

func (LogNotifier) ReportSubmitted(_ context.Context, r community.Report) error {
	log.WithFields(log.Fields{
		"report":     r.ID,
		"conditions": community.JoinConditions(r.Conditions),
	}).Debug("notify: report submitted")
	return nil
}
