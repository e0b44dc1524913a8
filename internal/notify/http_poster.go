package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const httpErrorBodyLimit = 1024

// Delivery results reported to a ResultRecorder.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// ResultRecorder is told the result of every delivery attempt sequence.
type ResultRecorder interface {
	IncNotifications(channel string, result string)
}

// Timing controls delivery timeouts, rate limiting and backoff.
type Timing struct {
	Timeout           time.Duration
	RateInterval      time.Duration
	RateBurst         int
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffMaxElapsed time.Duration
}

// DefaultTiming is used when no Timing is supplied.
var DefaultTiming = Timing{
	Timeout:           10 * time.Second,
	RateInterval:      1 * time.Second,
	RateBurst:         1,
	BackoffInitial:    1 * time.Second,
	BackoffMax:        10 * time.Second,
	BackoffMaxElapsed: 30 * time.Second,
}

type httpPoster struct {
	logger      zerolog.Logger
	channel     string
	url         string
	contentType string
	client      *retryablehttp.Client
	timing      Timing
	recorder    ResultRecorder

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

func newHTTPPoster(logger zerolog.Logger, channel, url, contentType string, timing Timing, recorder ResultRecorder) *httpPoster {
	client := retryablehttp.NewClient()
	// Retries are driven by postWithRetry so Retry-After and backoff share one budget.
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timing.Timeout}

	return &httpPoster{
		logger:      logger.With().Str("channel", channel).Logger(),
		channel:     channel,
		url:         url,
		contentType: contentType,
		client:      client,
		timing:      timing,
		recorder:    recorder,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// deliver waits for the per-target limiter, then posts with retries.
func (p *httpPoster) deliver(ctx context.Context, target string, payload []byte) error {
	if err := p.waitForRateLimit(ctx, target); err != nil {
		p.record(ResultFailed)
		return err
	}
	if err := p.postWithRetry(ctx, payload); err != nil {
		p.record(ResultFailed)
		return err
	}
	p.record(ResultDelivered)
	return nil
}

func (p *httpPoster) record(result string) {
	if p.recorder != nil {
		p.recorder.IncNotifications(p.channel, result)
	}
}

func (p *httpPoster) waitForRateLimit(ctx context.Context, target string) error {
	return p.limiterFor(target).Wait(ctx)
}

func (p *httpPoster) limiterFor(target string) *rate.Limiter {
	p.limiterMu.Lock()
	defer p.limiterMu.Unlock()

	if limiter, ok := p.limiters[target]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(p.timing.RateInterval), p.timing.RateBurst)
	p.limiters[target] = limiter
	return limiter
}

func (p *httpPoster) postWithRetry(ctx context.Context, payload []byte) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.timing.BackoffInitial
	policy.MaxInterval = p.timing.BackoffMax
	policy.MaxElapsedTime = p.timing.BackoffMaxElapsed
	policy.Reset()

	for attempt := 1; ; attempt++ {
		err := p.postOnce(ctx, payload)
		if err == nil {
			return nil
		}

		var retryAfter *retryAfterError
		if errors.As(err, &retryAfter) {
			p.logger.Debug().Dur("wait", retryAfter.Duration).Int("attempt", attempt).Msg("delivery rate limited")
			if !sleepWithContext(ctx, retryAfter.Duration) {
				return ctx.Err()
			}
			continue
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return err
		}
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		p.logger.Debug().Err(err).Dur("wait", wait).Int("attempt", attempt).Msg("delivery failed, retrying")
		if !sleepWithContext(ctx, wait) {
			return ctx.Err()
		}
	}
}

func (p *httpPoster) postOnce(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.timing.Timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", p.channel, err)
	}
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("%s request failed: %w", p.channel, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, httpErrorBodyLimit))
	bodyText := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		limited := fmt.Errorf("%s rate limited: %s", p.channel, resp.Status)
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return &retryAfterError{Duration: wait, err: limited}
		}
		return &retryableError{err: limited}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &retryableError{err: fmt.Errorf("%s server error: %s", p.channel, resp.Status)}
	case bodyText != "":
		return fmt.Errorf("%s request failed: %s (%s)", p.channel, resp.Status, bodyText)
	default:
		return fmt.Errorf("%s request failed: %s", p.channel, resp.Status)
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if wait := time.Until(when); wait > 0 {
			return wait, true
		}
	}
	return 0, false
}

func sleepWithContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

type retryAfterError struct {
	Duration time.Duration
	err      error
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("rate limited; retry after %s", e.Duration)
}

func (e *retryAfterError) Unwrap() error {
	return e.err
}
