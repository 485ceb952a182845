// internal/errors/service.go - Error recovery and reporting service
package errors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service provides retry, circuit breaking and CLI error reporting
type Service struct {
	retryConfig     RetryConfig
	breakerConfig   CircuitBreakerConfig
	messageHandler  *MessageHandler
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the state name
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements circuit breaker pattern for a single external host
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	now             func() time.Time
	mu              sync.RWMutex
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// NewService creates a new error service
func NewService() *Service {
	return &Service{
		retryConfig: RetryConfig{
			MaxRetries:    2,
			BaseDelay:     500 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxDelay:      10 * time.Second,
		},
		breakerConfig: CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 60 * time.Second,
		},
		messageHandler:  &MessageHandler{showTechnical: false},
		circuitBreakers: make(map[string]*CircuitBreaker),
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// WithRetryConfig replaces the retry policy
func (s *Service) WithRetryConfig(cfg RetryConfig) *Service {
	s.retryConfig = cfg
	return s
}

// WithBreakerConfig sets the policy for breakers created after this call
func (s *Service) WithBreakerConfig(cfg CircuitBreakerConfig) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakerConfig = cfg
	return s
}

// ExecuteWithRetry runs operation until it succeeds, fails permanently or ctx ends
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !s.shouldRetry(err, attempt) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.calculateDelay(attempt)):
		}
	}

	return fmt.Errorf("operation %s failed: %w", operationName, lastErr)
}

// Breaker returns the circuit breaker for name, creating it on first use
func (s *Service) Breaker(name string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, exists := s.circuitBreakers[name]; exists {
		return cb
	}

	cb := NewCircuitBreaker(name, s.breakerConfig)
	s.circuitBreakers[name] = cb
	return cb
}

// GetCircuitBreakerStats returns statistics for all circuit breakers
func (s *Service) GetCircuitBreakerStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{}, len(s.circuitBreakers))
	for name, cb := range s.circuitBreakers {
		stats[name] = cb.GetStats()
	}
	return stats
}

// shouldRetry determines if error is retryable
func (s *Service) shouldRetry(err error, attempt int) bool {
	if attempt >= s.retryConfig.MaxRetries {
		return false
	}

	switch KindOf(err) {
	case KindParseFailure, KindValidationReject, KindMalformedDocument, KindConfig:
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"timeout", "connection refused", "connection reset", "no such host",
		"500", "502", "503", "504", "429",
		"temporary", "service unavailable", "slowdown",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := float64(s.retryConfig.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= s.retryConfig.BackoffFactor
	}
	if time.Duration(delay) > s.retryConfig.MaxDelay {
		return s.retryConfig.MaxDelay
	}
	return time.Duration(delay)
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	switch KindOf(err) {
	case KindConfig:
		return "Configuration Error",
			"The run configuration is invalid.",
			[]string{
				"Run 'cellarscrapexter validate <config.yaml>' for details",
				"Generate a fresh file with 'cellarscrapexter template'",
			}
	case KindStorage:
		return "Storage Error",
			"The catalog or record store could not be read or written.",
			[]string{
				"Check the catalog path and its directory permissions",
				"Verify the store DSN and that the database is reachable",
			}
	case KindFetchFailure:
		return "Fetch Failed",
			"An external source could not be reached.",
			[]string{
				"Check your internet connection",
				"Increase fetch.timeout or fetch.host_delay",
			}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "yaml") {
		return "Configuration Error",
			"The configuration file has invalid YAML syntax.",
			[]string{
				"Check YAML indentation (use spaces, not tabs)",
				"Ensure proper quoting of string values",
			}
	}

	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") {
		return "File Not Found",
			"An input file could not be opened.",
			[]string{
				"Check the source path passed on the command line",
				"Relative paths are resolved against the working directory",
			}
	}

	if strings.Contains(errStr, "timeout") {
		return "Connection Timeout",
			"The request timed out while trying to connect.",
			[]string{
				"Check your internet connection",
				"Increase fetch.timeout in the configuration",
			}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again",
			"Re-run with --verbose for technical details",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindFetchFailure:
		return 3
	case KindParseFailure, KindMalformedDocument:
		return 4
	case KindStorage:
		return 5
	case KindValidationReject:
		return 6
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return 2
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection"):
		return 3
	case strings.Contains(errStr, "parse"):
		return 4
	case strings.Contains(errStr, "write") || strings.Contains(errStr, "save"):
		return 5
	default:
		return 1
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, suggestion := range suggestions {
			fmt.Fprintf(&b, "  - %s\n", suggestion)
		}
	}

	return b.String()
}

// NewCircuitBreaker creates a breaker in the closed state
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

// SetClock replaces the time source; used by tests
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// CanExecute checks if circuit breaker allows execution
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records failed execution
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	// a failed probe reopens immediately
	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
		cb.nextAttemptTime = cb.lastFailureTime.Add(cb.resetTimeout)
	}
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.state.String(),
		"failures":          cb.failures,
		"max_failures":      cb.maxFailures,
		"last_failure_time": cb.lastFailureTime,
		"next_attempt_time": cb.nextAttemptTime,
	}
}
