package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
)

// lineTriggers emits one trigger per line read from r. The channel is closed
// on EOF, on a "q" or "quit" line, or when ctx ends.
func lineTriggers(ctx context.Context, r io.Reader) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "q", "quit":
				return
			}
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// signalTriggers emits one trigger per received signal until ctx ends.
// Triggers arriving while a refresh is pending are coalesced.
func signalTriggers(ctx context.Context, sig ...os.Signal) <-chan struct{} {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, sig...)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
