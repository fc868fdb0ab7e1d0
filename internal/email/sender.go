package email

import (
	"context"
)

// Addresses identifies the parties of an outbound email
type Addresses struct {
	To      string `json:"to"`
	From    string `json:"from"`
	ReplyTo string `json:"reply_to"`
}

// Sender defines the interface for templated email dispatch
type Sender interface {
	SendTemplatedEmail(ctx context.Context, addr Addresses, templateID string, payload map[string]interface{}) error
}
