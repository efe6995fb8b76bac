package resilience

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/Almishev/pos-shop/pkg/logging"
)

// CircuitBreaker wraps gobreaker with state-change logging
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

// NewCircuitBreaker creates a named circuit breaker. The breaker opens
// after 5 consecutive failures and retries after 30 seconds.
func NewCircuitBreaker(name string, logger *logging.Logger) *CircuitBreaker {
	log := logger.WithComponent("circuit-breaker")

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

// Execute runs fn through the breaker
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State returns the current breaker state
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}
