package ai

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Composer turns a profile and a prior safety analysis into a Recommendation. It never
// returns an empty Recommendation: failures map to one of the two fallbacks.
type Composer struct {
	completer Completer
}

// NewComposer wraps completer. A nil completer yields a composer that always reports
// ErrDisabled with the system-error fallback.
func NewComposer(completer Completer) *Composer {
	return &Composer{completer: completer}
}

// Enabled reports whether a completer is configured.
func (c *Composer) Enabled() bool {
	if c == nil || c.completer == nil {
		return false
	}
	if client, ok := c.completer.(*Client); ok {
		return client.Enabled()
	}
	return true
}

// Compose makes a single completion call. A transport, auth or model failure returns the
// system-error fallback together with the error; an unreadable reply returns the
// parse-failure fallback and a nil error.
func (c *Composer) Compose(ctx context.Context, input AdvisoryInput) (Recommendation, error) {
	if !c.Enabled() {
		return SystemErrorFallback(), ErrDisabled
	}

	reply, err := c.completer.Complete(ctx, Messages(input))
	if err != nil {
		return SystemErrorFallback(), err
	}

	rec, err := ParseRecommendation(reply)
	if err != nil {
		logrus.WithError(err).WithField("supplement", input.SupplementName).Warn("ai reply unreadable, using fallback")
		return ParseFailureFallback(), nil
	}
	return rec, nil
}
