// Package importer loads client accounts from a JSON file.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/portal"
	"github.com/google/uuid"
)

// accountEntry is one account of the import file. ClientID is generated
// when empty.
type accountEntry struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// accountsFile represents the JSON structure of the accounts import file.
type accountsFile struct {
	Accounts []accountEntry `json:"accounts"`
}

// Result summarises an import.
type Result struct {
	Created int
	Skipped int
}

// ImportAccounts reads accounts from a JSON file, creates each one with a
// bcrypt-hashed password and provisions its profile. Existing accounts
// (matched by lower-cased email) are skipped.
func ImportAccounts(ctx context.Context, accounts *auth.Service, profiles *portal.Service, logger *common.Logger, jsonPath string) (Result, error) {
	var res Result

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return res, fmt.Errorf("failed to read accounts file %s: %w", jsonPath, err)
	}

	var file accountsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return res, fmt.Errorf("failed to parse accounts file %s: %w", jsonPath, err)
	}

	for i, entry := range file.Accounts {
		if entry.ClientID == "" {
			entry.ClientID = uuid.New().String()
		}

		acc, err := accounts.CreateAccount(ctx, auth.NewAccount{
			Email:       entry.Email,
			Password:    entry.Password,
			ClientID:    entry.ClientID,
			DisplayName: entry.DisplayName,
			Phone:       entry.Phone,
		})
		switch {
		case errors.Is(err, auth.ErrAccountExists):
			logger.Debug().Str("email", entry.Email).Msg("account already exists, skipping")
			res.Skipped++
			continue
		case errors.Is(err, auth.ErrMissingFields):
			return res, fmt.Errorf("account %d: email and password are required", i+1)
		case err != nil:
			return res, fmt.Errorf("failed to import account %s: %w", entry.Email, err)
		}

		if _, err := profiles.EnsureProfile(ctx, portal.AuthUser{
			UID:         acc.ClientID,
			Email:       acc.Email,
			DisplayName: acc.DisplayName,
			Phone:       acc.Phone,
		}); err != nil {
			return res, fmt.Errorf("failed to provision profile for %s: %w", acc.Email, err)
		}

		res.Created++
		logger.Info().Str("email", acc.Email).Str("client_id", acc.ClientID).Msg("account imported")
	}

	return res, nil
}
