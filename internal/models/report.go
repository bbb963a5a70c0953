package models

import "time"

// Report is a document the advisor shared with a client.
type Report struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	Name         string     `json:"name"`
	Date         time.Time  `json:"date"`
	File         Attachment `json:"file"`
	Description  string     `json:"description,omitempty"`
	Downloaded   bool       `json:"downloaded"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
	Viewed       bool       `json:"viewed"`
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
}
