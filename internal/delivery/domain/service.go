// Package domain declares PDF rendering and email delivery of documents.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDeliveryFailed = errors.New("delivery_failed")
	ErrRateLimited    = errors.New("rate_limited")
)

// DeliveryError wraps a render or send failure. The document is left untouched.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed at %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryFailed }

// RateLimitedError is returned when a document was emailed too often.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("document email rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

type RenderRequest struct {
	DocumentType string
	ID           string
}

type RenderResponse struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SendEmailRequest struct {
	DocumentType string  `json:"-"`
	ID           string  `json:"-"`
	To           *string `json:"to"`
	Message      string  `json:"message"`
}

type SendEmailResponse struct {
	DocumentType string    `json:"document_type"`
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	Status       string    `json:"status"`
	Recipient    string    `json:"recipient"`
	SentAt       time.Time `json:"sent_at"`
}

type Service interface {
	RenderPDF(ctx context.Context, req RenderRequest) (RenderResponse, error)
	SendEmail(ctx context.Context, req SendEmailRequest) (SendEmailResponse, error)
}
