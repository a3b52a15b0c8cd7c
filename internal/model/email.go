package model

import "strings"

// Email is either a found address or an explicit not-found. The zero value
// is NotFound.
type Email struct {
	addr string
}

// FoundEmail returns an Email holding addr. Invalid addresses collapse to
// NotFound.
func FoundEmail(addr string) Email {
	return ParseEmail(addr)
}

// NotFoundEmail returns the explicit not-found value.
func NotFoundEmail() Email {
	return Email{}
}

// ParseEmail interprets raw tool output. Empty values, the literal
// "not found" and strings without "@" are NotFound.
func ParseEmail(raw string) Email {
	s := strings.TrimSpace(raw)
	if !ValidEmail(s) {
		return Email{}
	}
	return Email{addr: s}
}

// Address returns the address and whether one was found.
func (e Email) Address() (string, bool) {
	return e.addr, e.addr != ""
}

// Found reports whether the e-mail was found.
func (e Email) Found() bool {
	return e.addr != ""
}

func (e Email) String() string {
	if e.addr == "" {
		return EmailNotFoundLiteral
	}
	return e.addr
}

// EmailNotFoundLiteral is the marker the finder tool prints for misses.
const EmailNotFoundLiteral = "Not found"

// ValidEmail reports whether s may be persisted as a contact e-mail.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "not found") {
		return false
	}
	return strings.Contains(s, "@")
}

// Confidence is the trust tier of a resolved e-mail.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
	ConfidenceNone   Confidence = "None"
)

// EmailStatus is the deliverability label persisted with a contact.
type EmailStatus string

const (
	EmailStatusValid    EmailStatus = "Valid"
	EmailStatusRisky    EmailStatus = "Risky"
	EmailStatusNotFound EmailStatus = "Not found"
	EmailStatusUnknown  EmailStatus = "Unknown"
)

// Status maps a confidence tier to its persisted status label.
func (c Confidence) Status() EmailStatus {
	switch c {
	case ConfidenceHigh:
		return EmailStatusValid
	case ConfidenceMedium, ConfidenceLow:
		return EmailStatusRisky
	case ConfidenceNone:
		return EmailStatusNotFound
	default:
		return EmailStatusUnknown
	}
}

// Outcome describes how an e-mail lookup ended.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// EmailResolution is the result of one e-mail lookup. It is never absent:
// a miss is an explicit NotFound with ConfidenceNone.
type EmailResolution struct {
	Email      Email      `json:"-"`
	Confidence Confidence `json:"email_confidence"`
	Outcome    Outcome    `json:"outcome"`
}

// Resolved builds a successful resolution.
func Resolved(addr string, c Confidence) EmailResolution {
	e := FoundEmail(addr)
	if !e.Found() {
		return Unresolved(OutcomeNotFound)
	}
	return EmailResolution{Email: e, Confidence: c, Outcome: OutcomeResolved}
}

// Unresolved builds a miss with the given outcome.
func Unresolved(o Outcome) EmailResolution {
	return EmailResolution{Email: NotFoundEmail(), Confidence: ConfidenceNone, Outcome: o}
}
