package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/wraiths/core/internal/correlation"
	"github.com/wraiths/core/internal/event"
)

// Publisher wraps payloads into envelopes and publishes them on their
// subject.
type Publisher struct {
	nc      *nats.Conn
	factory *event.Factory
	codec   event.Codec
}

func NewPublisher(nc *nats.Conn, factory *event.Factory) *Publisher {
	return &Publisher{nc: nc, factory: factory}
}

// Publish encodes the envelope and publishes it on its subject.
func (p *Publisher) Publish(_ context.Context, env *event.Envelope) error {
	data, err := p.codec.Encode(env)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(env.Subject.String(), data); err != nil {
		return fmt.Errorf("publish %s: %w", env.Subject, err)
	}
	log.Debug().
		Str("subject", env.Subject.String()).
		Str("event_id", env.EventID).
		Str("correlation_id", env.CorrelationID).
		Msg("published event")
	return nil
}

// Invoke publishes an invoke envelope addressed to the given domain and
// tool. The correlation ID is taken from the context when present,
// otherwise generated.
func (p *Publisher) Invoke(ctx context.Context, domain, tool string, payload json.RawMessage) (*event.Envelope, error) {
	corrID, ok := correlation.FromContext(ctx)
	if !ok {
		corrID = correlation.Generate()
	}
	env, err := p.factory.Invoke(domain, tool, corrID, payload)
	if err != nil {
		return nil, err
	}
	if err := p.Publish(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// PublishResult publishes the handler result for an invoke envelope under
// its tool.result subject, carrying the invoke's correlation ID.
func (p *Publisher) PublishResult(ctx context.Context, invoke *event.Envelope, payload json.RawMessage) (*event.Envelope, error) {
	env, err := p.factory.Result(invoke, payload)
	if err != nil {
		return nil, err
	}
	if err := p.Publish(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// PublishError publishes an error event for an invoke envelope under its
// tool.result subject, carrying the invoke's correlation ID.
func (p *Publisher) PublishError(ctx context.Context, invoke *event.Envelope, payload json.RawMessage) (*event.Envelope, error) {
	env, err := p.factory.Error(invoke, payload)
	if err != nil {
		return nil, err
	}
	if err := p.Publish(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}
