package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wraiths/core/internal/config"
	"github.com/wraiths/core/internal/correlation"
	"github.com/wraiths/core/internal/deadletter"
	"github.com/wraiths/core/internal/event"
	"github.com/wraiths/core/internal/routing"
	"github.com/wraiths/core/internal/schema"
)

// NoRoutePolicy decides what happens to a valid envelope no registered
// handler matches. The message is never retried locally in any case.
type NoRoutePolicy string

const (
	// NoRouteDrop discards the message silently.
	NoRouteDrop NoRoutePolicy = "drop"
	// NoRouteDeadLetter hands the message to the dead-letter store.
	NoRouteDeadLetter NoRoutePolicy = "deadletter"
	// NoRouteAlert logs the miss at error level.
	NoRouteAlert NoRoutePolicy = "alert"
)

// ParseNoRoutePolicy validates a policy string from config.
func ParseNoRoutePolicy(s string) (NoRoutePolicy, error) {
	switch NoRoutePolicy(s) {
	case NoRouteDrop, NoRouteDeadLetter, NoRouteAlert:
		return NoRoutePolicy(s), nil
	}
	return "", fmt.Errorf("unknown no-route policy %q", s)
}

// ResultPublisher publishes result and error events for consumed invokes.
// Satisfied by *Publisher.
type ResultPublisher interface {
	PublishResult(ctx context.Context, invoke *event.Envelope, payload json.RawMessage) (*event.Envelope, error)
	PublishError(ctx context.Context, invoke *event.Envelope, payload json.RawMessage) (*event.Envelope, error)
}

// ConsumerOptions carries the collaborators the consumer dispatches into.
type ConsumerOptions struct {
	Router     *routing.Router
	Schemas    *schema.Registry
	Publisher  ResultPublisher
	DeadLetter deadletter.Store
	Policy     NoRoutePolicy
	// Observer, when non-nil, sees every successfully decoded envelope
	// before dispatch (used by the event-stream gateway).
	Observer func(*event.Envelope)
	Clock    clockwork.Clock
}

// Consumer is the durable JetStream consumer for tool.invoke subjects. Per
// message it decodes the envelope, dispatches it through the router and
// publishes the handler's result under the matching tool.result subject.
type Consumer struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	cfg      config.NATSConfig
	opts     ConsumerOptions
	codec    event.Codec
}

func NewConsumer(js jetstream.JetStream, cfg config.NATSConfig, opts ConsumerOptions) (*Consumer, error) {
	if opts.Router == nil {
		return nil, errors.New("consumer requires a router")
	}
	if opts.Publisher == nil {
		return nil, errors.New("consumer requires a publisher")
	}
	if opts.DeadLetter == nil {
		opts.DeadLetter = deadletter.LogStore{}
	}
	if opts.Policy == "" {
		opts.Policy = NoRouteAlert
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Consumer{js: js, cfg: cfg, opts: opts}, nil
}

// Start ensures the stream and durable consumer exist and consumes messages
// until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureConsumer(ctx); err != nil {
		return err
	}

	cc, err := c.consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	defer cc.Stop()

	log.Info().
		Str("stream", c.cfg.StreamName).
		Str("filter", c.cfg.SubjectFilter).
		Msg("bus consumer started")

	<-ctx.Done()
	log.Info().Msg("bus consumer shutting down")
	return nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.cfg.StreamName,
		Subjects: []string{"tool.>"},
	})
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.cfg.ConsumerName,
		Durable:       c.cfg.ConsumerName,
		Description:   "Tool invocation consumer",
		FilterSubject: c.cfg.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.cfg.MaxDeliver,
		AckWait:       c.cfg.AckWait,
		MaxAckPending: c.cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.cfg.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Str("consumer", c.cfg.ConsumerName).Msg("created JetStream consumer")
	} else {
		log.Info().Str("consumer", c.cfg.ConsumerName).Msg("using existing JetStream consumer")
	}

	c.consumer = consumer
	return nil
}

// ackDecision is what process tells handle to do with the JetStream message.
type ackDecision int

const (
	ackMsg ackDecision = iota
	termMsg
	nakMsg
)

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	switch c.process(ctx, msg.Data()) {
	case termMsg:
		if err := msg.Term(); err != nil {
			log.Error().Err(err).Msg("terminate message")
		}
	case nakMsg:
		if err := msg.Nak(); err != nil {
			log.Error().Err(err).Msg("nak message")
		}
	default:
		if err := msg.Ack(); err != nil {
			log.Error().Err(err).Msg("ack message")
		}
	}
}

// process runs the full pipeline for one message: decode, observe, validate
// the payload at the handler boundary, dispatch, publish the result. The
// returned decision drives the JetStream acknowledgement.
func (c *Consumer) process(ctx context.Context, data []byte) ackDecision {
	env, err := c.codec.Decode(data)
	if err != nil {
		// Unparseable or invalid envelopes can never succeed on redelivery.
		c.reject(ctx, data, env, err)
		return termMsg
	}

	corrID := correlation.FromEnvelope(env)
	ctx = correlation.WithID(ctx, corrID)

	if c.opts.Observer != nil {
		c.opts.Observer(env)
	}

	logger := log.With().
		Str("subject", env.Subject.String()).
		Str("event_id", env.EventID).
		Str("correlation_id", corrID).
		Logger()

	if c.opts.Schemas != nil {
		if err := c.opts.Schemas.Validate(env.Subject, env.Payload); err != nil {
			logger.Warn().Err(err).Msg("payload rejected")
			c.publishError(ctx, env, err)
			return termMsg
		}
	}

	result, err := c.opts.Router.Dispatch(ctx, env)
	switch {
	case errors.Is(err, routing.ErrNoRouteFound):
		c.handleNoRoute(ctx, data, env, err, logger)
		return ackMsg
	case err != nil:
		logger.Warn().Err(err).Msg("handler failed")
		c.publishError(ctx, env, err)
		return ackMsg
	}

	if _, err := c.opts.Publisher.PublishResult(ctx, env, result); err != nil {
		// Transient publish failure: leave the message for redelivery.
		logger.Error().Err(err).Msg("publish result")
		return nakMsg
	}
	logger.Debug().Msg("event handled")
	return ackMsg
}

func (c *Consumer) handleNoRoute(ctx context.Context, data []byte, env *event.Envelope, err error, logger zerolog.Logger) {
	switch c.opts.Policy {
	case NoRouteDrop:
		logger.Debug().Msg("no route, dropping")
	case NoRouteDeadLetter:
		logger.Warn().Msg("no route, dead-lettering")
		c.deadLetter(ctx, data, env, err)
	default:
		logger.Error().Err(err).Msg("no route found")
	}
}

// reject handles envelopes that failed decoding. They cannot be answered
// over the bus, so they go to the dead-letter store.
func (c *Consumer) reject(ctx context.Context, data []byte, env *event.Envelope, err error) {
	log.Warn().Err(err).Msg("rejected message")
	c.deadLetter(ctx, data, env, err)
}

func (c *Consumer) deadLetter(ctx context.Context, data []byte, env *event.Envelope, cause error) {
	entry := deadletter.Entry{
		Reason:     cause.Error(),
		Data:       data,
		ReceivedAt: c.opts.Clock.Now().UTC(),
	}
	if env != nil {
		entry.Subject = env.Subject.String()
		entry.CorrelationID = env.CorrelationID
	}
	if err := c.opts.DeadLetter.Save(ctx, entry); err != nil {
		log.Error().Err(err).Msg("save dead-letter entry")
	}
}

// errorPayload is the payload of error events published for failed invokes.
type errorPayload struct {
	Error string `json:"error"`
}

func (c *Consumer) publishError(ctx context.Context, invoke *event.Envelope, cause error) {
	payload, err := json.Marshal(errorPayload{Error: cause.Error()})
	if err != nil {
		log.Error().Err(err).Msg("marshal error payload")
		return
	}
	if _, err := c.opts.Publisher.PublishError(ctx, invoke, payload); err != nil {
		log.Error().Err(err).Msg("publish error event")
	}
}
