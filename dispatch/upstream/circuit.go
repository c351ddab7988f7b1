// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/cgibridge/internal/slogfield"

	"github.com/sony/gobreaker"
)

type circuitOptions struct {
	name        string
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
}

// StatusCodeError marks an upstream response which the circuit breaker
// counted as a failure. The response itself is still relayed.
type StatusCodeError struct {
	Response *http.Response
}

// Error implements the [error] interface.
func (e StatusCodeError) Error() string {
	return fmt.Sprintf("upstream responded with status code: %d", e.Response.StatusCode)
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb *gobreaker.CircuitBreaker
}

func newCircuitRoundTripper(rt http.RoundTripper, log *slog.Logger, co circuitOptions) *circuitRoundTripper {
	log = log.With(slogfield.String("circuit", co.name))

	return &circuitRoundTripper{
		RoundTripper: rt,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        co.name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					log.Warn(
						"circuit is now half open and letting some requests through",
						slogfield.Uint64("max_requests_allowed_through", uint64(co.maxRequests)),
					)
				case gobreaker.StateClosed:
					log.Info("circuit has been closed")
				}
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// RoundTrip implements the [http.RoundTripper] interface.
func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, StatusCodeError{Response: resp}
		}
		return resp, nil
	})

	var sce StatusCodeError
	if errors.As(err, &sce) {
		return sce.Response, nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
