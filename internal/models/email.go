package models

import (
	"fmt"
	"strings"
)

// InboundEmail is the normalized form of an inbound webhook delivery.
type InboundEmail struct {
	From      string `json:"from"`
	FromName  string `json:"fromName,omitempty"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	TextBody  string `json:"textBody"`
	HTMLBody  string `json:"htmlBody"`
	Date      string `json:"date"`
	MessageID string `json:"messageId"`
}

// PostmarkAddress is the structured address Postmark sends in FromFull.
type PostmarkAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

// PostmarkInbound is the subset of the Postmark inbound webhook payload we use.
type PostmarkInbound struct {
	From      string           `json:"From"`
	FromFull  *PostmarkAddress `json:"FromFull"`
	To        string           `json:"To"`
	Subject   string           `json:"Subject"`
	TextBody  string           `json:"TextBody"`
	HtmlBody  string           `json:"HtmlBody"`
	Date      string           `json:"Date"`
	MessageID string           `json:"MessageID"`
}

// ValidationError reports a malformed inbound payload.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid email data: %s is required", e.Field)
}

// ToEmail validates the payload and converts it. A sender, a subject and at
// least one body are required.
func (p PostmarkInbound) ToEmail() (InboundEmail, error) {
	from := ""
	name := ""
	if p.FromFull != nil {
		from = strings.TrimSpace(p.FromFull.Email)
		name = strings.TrimSpace(p.FromFull.Name)
	}
	if from == "" {
		from = strings.TrimSpace(p.From)
	}
	if from == "" {
		return InboundEmail{}, &ValidationError{Field: "from"}
	}
	if strings.TrimSpace(p.Subject) == "" {
		return InboundEmail{}, &ValidationError{Field: "subject"}
	}
	if strings.TrimSpace(p.TextBody) == "" && strings.TrimSpace(p.HtmlBody) == "" {
		return InboundEmail{}, &ValidationError{Field: "body"}
	}
	return InboundEmail{
		From:      from,
		FromName:  name,
		To:        p.To,
		Subject:   p.Subject,
		TextBody:  p.TextBody,
		HTMLBody:  p.HtmlBody,
		Date:      p.Date,
		MessageID: p.MessageID,
	}, nil
}
