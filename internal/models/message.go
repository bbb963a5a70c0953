// Package models holds the typed entities of the client portal.
package models

import "time"

// SenderRole identifies who authored a message. It never changes after
// creation.
type SenderRole string

const (
	SenderClient  SenderRole = "client"
	SenderAdvisor SenderRole = "advisor"
)

// MessageStatus is the advisor-side workflow state of a message.
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusAnswered MessageStatus = "answered"
	StatusInReview MessageStatus = "in_review"
	StatusSent     MessageStatus = "sent"
)

// Attachment describes a file hanging off a message or report.
type Attachment struct {
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Type       string     `json:"type,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	Size       string     `json:"size,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

// Message is one chat turn between a client and their advisor.
type Message struct {
	ID         string        `json:"id"`
	ClientID   string        `json:"client_id"`
	Content    string        `json:"content"`
	Timestamp  time.Time     `json:"timestamp"`
	Sender     SenderRole    `json:"sender"`
	Status     MessageStatus `json:"status"`
	Read       bool          `json:"read"`
	Attachment *Attachment   `json:"attachment,omitempty"`
}

// FromAdvisor reports whether the advisor authored m.
func (m Message) FromAdvisor() bool {
	return m.Sender == SenderAdvisor
}

// IsUnreadAdvisor reports whether m counts towards the client's unread badge.
func (m Message) IsUnreadAdvisor() bool {
	return m.Sender == SenderAdvisor && !m.Read
}
