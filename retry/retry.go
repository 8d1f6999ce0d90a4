package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Settings controls exponential backoff between attempts.
type Settings struct {
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Multiplier     int           `mapstructure:"multiplier"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	// MaxRetries is the number of attempts made before giving up. Zero
	// means retry forever.
	MaxRetries int `mapstructure:"max_retries"`
}

func (s Settings) Verify() error {
	if s.InitialBackoff <= 0 {
		return errors.Newf("initial backoff must be set to >= 0, got %s", s.InitialBackoff)
	}
	if s.Multiplier < 1 {
		return errors.Newf("multiplier must be >= 1, got %d", s.Multiplier)
	}
	if s.MaxBackoff > 0 && s.InitialBackoff > s.MaxBackoff {
		return errors.Newf("initial backoff (%s) must be less than max backoff (%s)", s.InitialBackoff, s.MaxBackoff)
	}
	if s.MaxRetries < 0 {
		return errors.Newf("max retries must be >= 0, got %d", s.MaxRetries)
	}
	return nil
}

func DefaultSettings() Settings {
	return Settings{
		InitialBackoff: time.Second,
		Multiplier:     2,
		MaxBackoff:     30 * time.Second,
		MaxRetries:     5,
	}
}

type Retry struct {
	Iteration int
	StartTime time.Time
	NextRetry time.Time

	settings Settings
}

func NewRetry(settings Settings) (*Retry, error) {
	return NewRetryWithTime(time.Now(), settings)
}

func NewRetryWithTime(t time.Time, settings Settings) (*Retry, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	return &Retry{
		Iteration: 1,
		StartTime: t,
		NextRetry: t.Add(settings.InitialBackoff),
		settings:  settings,
	}, nil
}

func (rm *Retry) ShouldContinue() bool {
	if rm.settings.MaxRetries == 0 {
		return true
	}
	return rm.Iteration < rm.settings.MaxRetries
}

func (rm *Retry) Next() {
	nextDuration := rm.settings.InitialBackoff * time.Duration(math.Pow(float64(rm.settings.Multiplier), float64(rm.Iteration)))
	if rm.settings.MaxBackoff > 0 && nextDuration > rm.settings.MaxBackoff {
		nextDuration = rm.settings.MaxBackoff
	}
	rm.Iteration++
	rm.NextRetry = rm.NextRetry.Add(nextDuration)
}

// Wait blocks until NextRetry or until ctx is done.
func (rm *Retry) Wait(ctx context.Context) error {
	t := time.NewTimer(time.Until(rm.NextRetry))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls fn until it succeeds, fails with an error for which retryable
// returns false, or the retry budget is exhausted. onRetry, if set, is
// called before each wait.
func Do(
	ctx context.Context,
	settings Settings,
	fn func(ctx context.Context) error,
	retryable func(err error) bool,
	onRetry func(r *Retry, err error),
) error {
	r, err := NewRetry(settings)
	if err != nil {
		return err
	}
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || !r.ShouldContinue() {
			return err
		}
		if onRetry != nil {
			onRetry(r, err)
		}
		if waitErr := r.Wait(ctx); waitErr != nil {
			return errors.WithSecondaryError(waitErr, err)
		}
		r.Next()
	}
}
