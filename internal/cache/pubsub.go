package cache

import (
	"context"
	"fmt"
	"strings"
)

const verificationChannelPrefix = "verification:"

// VerificationNotifier fans out "email verified" transitions over Redis
// pub/sub so long-polling requests on any instance wake up.
type VerificationNotifier struct {
	c *Client
}

// NewVerificationNotifier creates a notifier on top of the client.
func NewVerificationNotifier(c *Client) *VerificationNotifier {
	return &VerificationNotifier{c: c}
}

func verificationChannel(email string) string {
	return verificationChannelPrefix + strings.ToLower(email)
}

// NotifyVerified publishes the transition for email.
func (n *VerificationNotifier) NotifyVerified(ctx context.Context, email string) error {
	if err := n.c.client.Publish(ctx, verificationChannel(email), "verified").Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives one value per published
// transition for email. The returned stop func must be called.
func (n *VerificationNotifier) Subscribe(ctx context.Context, email string) (<-chan struct{}, func(), error) {
	ps := n.c.client.Subscribe(ctx, verificationChannel(email))
	// Receive blocks until the subscription is confirmed, so no publish
	// issued after this point can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, func() {}, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	stop := func() {
		close(done)
		_ = ps.Close()
	}
	return out, stop, nil
}
