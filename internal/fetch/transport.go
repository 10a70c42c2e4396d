// Package fetch retrieves raw feed payloads and normalizes them into
// model.Item values.
//
// Transports only move bytes and decode them into RawItem records; they never
// decide what an Item looks like. Normalize is the single place that does.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// StatusOK is the payload status of a successful fetch.
const StatusOK = "ok"

// ErrStatus is returned when a provider answers with a non-ok status.
var ErrStatus = errors.New("feed provider returned non-ok status")

// RawItem is one provider record before normalization.
type RawItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PubDate     string `json:"pubDate"`
}

// Payload is what a transport returns for one locator.
type Payload struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Items   []RawItem `json:"items"`
}

// Check returns an error wrapping ErrStatus unless the payload is ok.
func (p Payload) Check() error {
	if p.Status == StatusOK {
		return nil
	}
	if p.Message != "" {
		return fmt.Errorf("%w: %s (%s)", ErrStatus, p.Status, p.Message)
	}
	return fmt.Errorf("%w: %q", ErrStatus, p.Status)
}

// Transport fetches one feed locator.
type Transport interface {
	Fetch(ctx context.Context, locator string) (Payload, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, locator string) (Payload, error)

// Fetch calls f.
func (f TransportFunc) Fetch(ctx context.Context, locator string) (Payload, error) {
	return f(ctx, locator)
}
