package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/glowlab/dermascan/internal/core/domain"
)

func TestClassifyPublishError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"cancelled context", context.Canceled, false, false},
		{"deadline", context.DeadlineExceeded, false, false},
		{"bad subject", nats.ErrBadSubject, false, false},
		{"oversized payload", nats.ErrMaxPayload, false, false},
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"reconnect buffer full", nats.ErrReconnectBufExceeded, true, true},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		class := classifyPublishError(tc.err)
		if class.Retryable != tc.retryable || class.RecordFailure != tc.recordFailure {
			t.Fatalf("%s: got %+v", tc.name, class)
		}
	}
}

func TestTerminalPublishSkipsBreaker(t *testing.T) {
	// A caller-side mistake must not open the breaker and starve broker
	// events that would have succeeded.
	for _, err := range []error{nats.ErrBadSubject, nats.ErrInvalidMsg, nats.ErrMaxPayload} {
		class := classifyPublishError(err)
		if class.Retryable || class.RecordFailure {
			t.Fatalf("%v: expected terminal non-recorded, got %+v", err, class)
		}
	}
}

func TestAsTemporary(t *testing.T) {
	if err := asTemporary(nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}

	flap := asTemporary(nats.ErrTimeout)
	if !domain.IsKind(flap, domain.ErrTemporary) {
		t.Fatalf("expected temporary wrap, got %v", flap)
	}
	if asTemporary(flap) != flap {
		t.Fatalf("already-temporary errors must not be double wrapped")
	}

	if got := asTemporary(nats.ErrBadSubject); got != nats.ErrBadSubject {
		t.Fatalf("terminal publish errors pass through, got %v", got)
	}
}
