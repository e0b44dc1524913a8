package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nholik/goact-stack/internal/health"
	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
)

func fastTiming() Timing {
	return Timing{
		Timeout:           time.Second,
		RateInterval:      time.Millisecond,
		RateBurst:         1,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        2 * time.Millisecond,
		BackoffMaxElapsed: 50 * time.Millisecond,
	}
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) IncNotifications(_ string, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *countingRecorder) delivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[ResultDelivered]
}

func (r *countingRecorder) failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[ResultFailed]
}

func TestBuildSlackMessagesSingle(t *testing.T) {
	messages := buildSlackMessages("http://backend/api/health", makeTransitions(2))
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if !strings.Contains(msg.Text, "http://backend/api/health") {
		t.Fatalf("expected summary to include target, got %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "2 health transition") {
		t.Fatalf("expected summary to include transition count, got %q", msg.Text)
	}
	if msg.Blocks == nil {
		t.Fatalf("expected blocks to be set")
	}
	if len(msg.Blocks.BlockSet) != slackReservedBlocks+2 {
		t.Fatalf("expected %d blocks, got %d", slackReservedBlocks+2, len(msg.Blocks.BlockSet))
	}
}

func TestBuildSlackMessagesChunking(t *testing.T) {
	total := slackMaxTransitions*2 + 3
	messages := buildSlackMessages("beta", makeTransitions(total))
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	for i, msg := range messages {
		if msg.Blocks == nil {
			t.Fatalf("message %d missing blocks", i)
		}
		if len(msg.Blocks.BlockSet) > slackMaxBlocks {
			t.Fatalf("message %d exceeds block limit: %d", i, len(msg.Blocks.BlockSet))
		}
		if !strings.Contains(msg.Text, fmt.Sprintf("part %d/3", i+1)) {
			t.Fatalf("message %d missing part marker: %q", i, msg.Text)
		}
	}
}

func TestStateLabel(t *testing.T) {
	if got := stateLabel("", ""); got != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN, got %q", got)
	}
	if got := stateLabel(health.KindReady, "ok"); got != "READY (ok)" {
		t.Fatalf("unexpected ready label %q", got)
	}
	if got := stateLabel(health.KindFailed, ""); got != "FAILED" {
		t.Fatalf("unexpected failed label %q", got)
	}
}

func TestNewSlackNotifierWithoutWebhookIsNoop(t *testing.T) {
	notifier := NewSlackNotifier(zerolog.Nop(), "")
	if _, ok := notifier.(*NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", notifier)
	}
}

func TestSlackNotifierRetriesOnServerError(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &countingRecorder{}
	notifier := NewSlackNotifier(zerolog.New(io.Discard), server.URL,
		WithSlackTiming(fastTiming()),
		WithSlackRecorder(recorder),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := notifier.Notify(ctx, "alpha", makeTransitions(1)); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if recorder.delivered() != 1 {
		t.Fatalf("expected one delivered result, got %d", recorder.delivered())
	}
}

func TestSlackNotifierRetryAfterError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(zerolog.New(io.Discard), server.URL, WithSlackTiming(fastTiming()))
	slackNotifier, ok := notifier.(*SlackNotifier)
	if !ok {
		t.Fatalf("expected SlackNotifier, got %T", notifier)
	}

	err := slackNotifier.poster.postOnce(context.Background(), []byte(`{}`))
	var retryAfterErr *retryAfterError
	if !errors.As(err, &retryAfterErr) {
		t.Fatalf("expected retry-after error, got %v", err)
	}
	if retryAfterErr.Duration != time.Second {
		t.Fatalf("expected 1s retry-after, got %s", retryAfterErr.Duration)
	}
}

func TestSlackNotifierRateLimitBlocks(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timing := fastTiming()
	timing.RateInterval = 500 * time.Millisecond
	notifier := NewSlackNotifier(zerolog.New(io.Discard), server.URL, WithSlackTiming(timing))

	if err := notifier.Notify(context.Background(), "alpha", makeTransitions(1)); err != nil {
		t.Fatalf("expected first notify to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := notifier.Notify(ctx, "alpha", makeTransitions(1)); err == nil {
		t.Fatalf("expected rate limit error, got nil")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected rate limit to block second call, got %d", got)
	}
}

func TestSlackNotifierClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid_payload"))
	}))
	defer server.Close()

	recorder := &countingRecorder{}
	notifier := NewSlackNotifier(zerolog.New(io.Discard), server.URL,
		WithSlackTiming(fastTiming()),
		WithSlackRecorder(recorder),
	)

	err := notifier.Notify(context.Background(), "alpha", makeTransitions(1))
	if err == nil {
		t.Fatalf("expected error for 400 response, got nil")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid_payload") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 call (no retries for 4xx), got %d", got)
	}
	if recorder.failed() != 1 {
		t.Fatalf("expected one failed result, got %d", recorder.failed())
	}
}

func TestSlackNotifierContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	timing := fastTiming()
	timing.BackoffInitial = 100 * time.Millisecond
	timing.BackoffMax = 200 * time.Millisecond
	timing.BackoffMaxElapsed = time.Second
	notifier := NewSlackNotifier(zerolog.New(io.Discard), server.URL, WithSlackTiming(timing))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := notifier.Notify(ctx, "alpha", makeTransitions(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled error, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if _, ok := parseRetryAfter(""); ok {
		t.Fatalf("expected empty header to be rejected")
	}
	if _, ok := parseRetryAfter("0"); ok {
		t.Fatalf("expected zero seconds to be rejected")
	}
	if wait, ok := parseRetryAfter("3"); !ok || wait != 3*time.Second {
		t.Fatalf("expected 3s, got %s (%v)", wait, ok)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if wait, ok := parseRetryAfter(future); !ok || wait <= 0 {
		t.Fatalf("expected positive wait for http date, got %s (%v)", wait, ok)
	}
}

func makeTransitions(count int) []transition.Transition {
	transitions := make([]transition.Transition, count)
	for i := 0; i < count; i++ {
		transitions[i] = transition.Transition{
			PreviousKind:   health.KindReady,
			PreviousStatus: "ok",
			CurrentKind:    health.KindFailed,
			Message:        fmt.Sprintf("HTTP %d", 500+i%4),
			At:             time.Unix(int64(100+i), 0),
		}
	}
	return transitions
}
