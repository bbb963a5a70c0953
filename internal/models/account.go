package models

// Account holds login credentials for a client. Accounts are keyed by the
// lower-cased email address.
type Account struct {
	Email        string `json:"email"`
	ClientID     string `json:"client_id"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"display_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
}
