// Package notify composes outbound links: mail drafts and chat messages. It
// sends nothing itself; the client opens the link.
package notify

import (
	"net/url"
	"strings"

	"rently/internal/core"
)

const (
	FeedbackSubject = "Rently Feedback"
	chatBaseURL     = "https://wa.me/"
)

// ReminderSubject is the mail subject for a rent reminder.
func ReminderSubject(tenant string) string {
	return "Rent Reminder: " + tenant
}

// ReminderBody is the message sent to a tenant, by mail or chat.
func ReminderBody(tenant string) string {
	return "Hi " + tenant + ",\n\nThis is a friendly reminder regarding your rent."
}

// ReminderMail returns a mailto link with no recipient, so the owner picks one.
func ReminderMail(tenant string) string {
	return mailto("", ReminderSubject(tenant), ReminderBody(tenant))
}

// FeedbackMail returns a mailto link addressed to the feedback inbox. from is
// the signed-in user's address and may be empty.
func FeedbackMail(to, from string) string {
	body := ""
	if from != "" {
		body = "\n\n---\nSent by " + from
	}
	return mailto(to, FeedbackSubject, body)
}

// ChatMessage returns a wa.me link that opens a chat with phone, prefilled
// with text.
func ChatMessage(phone, text string) (string, error) {
	digits := strings.TrimPrefix(core.NormalizePhone(phone), "+")
	if len(digits) < 7 {
		return "", core.ErrInvalidPhone
	}
	return chatBaseURL + digits + "?text=" + escape(text), nil
}

func mailto(to, subject, body string) string {
	var b strings.Builder
	b.WriteString("mailto:")
	b.WriteString(url.PathEscape(to))
	b.WriteString("?subject=")
	b.WriteString(escape(subject))
	if body != "" {
		b.WriteString("&body=")
		b.WriteString(escape(body))
	}
	return b.String()
}

// escape encodes spaces as %20; mail clients show a literal "+" otherwise.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
