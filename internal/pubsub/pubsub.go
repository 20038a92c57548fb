// Package pubsub implements the subscription registries shared by the feed and
// broker sides. Both are the same primitive: an append-only, insertion-ordered
// subscriber list that is snapshotted at publish time, with failure isolation
// between subscribers. The feed registry adds an asset key dimension with a
// wildcard; the broker registry is the unkeyed variant.
package pubsub

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// invoke runs one subscriber callback, converting a panic into a subscriber
// error so one bad subscriber never halts a fan-out.
func invoke(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeSubscriberFailed, "subscriber panicked: %v", r)
		}
	}()

	return call()
}

// fanOut invokes every callback in order. Failures are wrapped, logged, and
// collected; the joined result is returned after the whole fan-out completes.
func fanOut[S any](log *logger.Logger, subscribers []S, call func(S) error) error {
	var errs []error

	for _, subscriber := range subscribers {
		s := subscriber
		if err := invoke(func() error { return call(s) }); err != nil {
			wrapped := errors.Wrap(errors.ErrCodeSubscriberFailed, "subscriber callback failed", err)
			log.Warn("subscriber callback failed", zap.Error(err))
			errs = append(errs, wrapped)
		}
	}

	return errors.Join(errs...)
}
