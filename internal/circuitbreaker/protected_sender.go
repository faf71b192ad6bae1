package circuitbreaker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wishloop/internal/sender"
)

// ProtectedSender wraps a mail transport with a CircuitBreaker. When the
// relay starts failing the circuit opens and the remaining candidates of
// the run fail fast; since nothing is recorded in the ledger for them,
// the next cron run re-selects them.
type ProtectedSender struct {
	sender  sender.Sender
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewProtectedSender wraps a sender with circuit breaker protection.
func NewProtectedSender(s sender.Sender, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedSender {
	return &ProtectedSender{
		sender:  s,
		breaker: breaker,
		logger:  logger,
	}
}

// Send attempts delivery through the circuit breaker. If the circuit is
// open, returns ErrCircuitOpen immediately.
func (p *ProtectedSender) Send(ctx context.Context, msg *sender.Message) error {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected send",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("to", msg.To),
			zap.String("state", p.breaker.GetState().String()),
		)
		return fmt.Errorf("%w: %s transport unavailable", ErrCircuitOpen, p.breaker.config.Name)
	}

	err := p.sender.Send(ctx, msg)
	if err != nil {
		p.breaker.RecordFailure()
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}

// Breaker returns the underlying circuit breaker for monitoring.
func (p *ProtectedSender) Breaker() *CircuitBreaker {
	return p.breaker
}
