package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostmarkInboundToEmail(t *testing.T) {
	p := PostmarkInbound{
		From:      "Sender <sender@example.com>",
		FromFull:  &PostmarkAddress{Email: "Sender@Example.com", Name: "Sender"},
		To:        "podcast@example.com",
		Subject:   "Weekly Digest",
		TextBody:  "hello",
		MessageID: "abc",
	}

	email, err := p.ToEmail()
	require.NoError(t, err)
	assert.Equal(t, "Sender@Example.com", email.From)
	assert.Equal(t, "Sender", email.FromName)
	assert.Equal(t, "Weekly Digest", email.Subject)
	assert.Equal(t, "abc", email.MessageID)
}

func TestPostmarkInboundValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    PostmarkInbound
		field string
	}{
		{"missing sender", PostmarkInbound{Subject: "s", TextBody: "b"}, "from"},
		{"missing subject", PostmarkInbound{From: "a@b.com", TextBody: "b"}, "subject"},
		{"missing body", PostmarkInbound{From: "a@b.com", Subject: "s"}, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.ToEmail()
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestPostmarkInboundHTMLOnly(t *testing.T) {
	p := PostmarkInbound{From: "a@b.com", Subject: "s", HtmlBody: "<p>hi</p>"}
	email, err := p.ToEmail()
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", email.HTMLBody)
}
