package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/glowlab/dermascan/internal/core/domain"
	"github.com/glowlab/dermascan/internal/infrastructure/resilience"
)

// isPublishTerminal reports malformed-publish conditions. A bad subject or an
// oversized event payload will fail identically on every retry and says
// nothing about broker health.
func isPublishTerminal(err error) bool {
	return errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, nats.ErrInvalidMsg) ||
		errors.Is(err, nats.ErrMaxPayload)
}

// isConnectionFlap reports broker-side unavailability worth retrying and
// recording against the publish breaker.
func isConnectionFlap(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrReconnectBufExceeded)
}

// classifyPublishError decides how the executor treats a failed scan-event
// publish. The event is fire-and-forget, so the caller degrades nothing
// either way; the classification only steers the retry loop and the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Scan response already sent; the remaining publish window closed.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case isPublishTerminal(err):
		// Caller bug, not broker trouble. Do not trip the breaker for it.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err) || isConnectionFlap(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// asTemporary tags retryable publish failures so callers watching the error
// kind can tell a flapping broker from a malformed event.
func asTemporary(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) || isConnectionFlap(err) {
		return domain.WrapError(domain.ErrTemporary, "publish scan event", err)
	}
	return err
}
