package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSendTemplateBuildsMultipartMessage(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.test", Port: 2525, From: "billing@fieldbook.test"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	provider.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := provider.SendTemplate(context.Background(), []string{"owner@harbor.test"}, "document_delivery", map[string]any{
		"subject":        "Invoice INV-00001",
		"customer_name":  "Harbor Bakery",
		"document_label": "invoice",
		"number":         "INV-00001",
		"title":          "Panel upgrade",
		"currency":       "USD",
		"total":          "137.70",
		"company_name":   "Fieldbook Electric",
	}, Attachment{Filename: "INV-00001.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)

	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, []string{"owner@harbor.test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Invoice INV-00001")
	assert.Contains(t, gotMsg, "multipart/mixed")
	assert.Contains(t, gotMsg, "Harbor Bakery")
	assert.Contains(t, gotMsg, `filename=INV-00001.pdf`)
	assert.True(t, strings.Contains(gotMsg, "JVBERi0xLjQ="), "pdf attachment is base64 encoded")
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.test", Port: 25})
	assert.Error(t, provider.Send(context.Background(), Message{Subject: "x"}))
}

func TestSMTPSendPropagatesTransportError(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.test", Port: 25})
	provider.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := provider.Send(context.Background(), Message{To: []string{"a@b.test"}, Subject: "x"})
	assert.EqualError(t, err, "connection refused")
}
