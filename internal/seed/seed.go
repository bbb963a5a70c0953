// Package seed fills an empty dev store with a demo client.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/importer"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/portal"
)

const (
	accountsFileName = "import/accounts.json"

	DemoEmail    = "demo@advisor.local"
	DemoPassword = "demo"
	DemoClientID = "demo-client"
)

// Deps are the services the seeder writes through.
type Deps struct {
	Docs     interfaces.DocumentGateway
	Accounts *auth.Service
	Profiles *portal.Service
	Logger   *common.Logger
}

type seedMessage struct {
	id      string
	content string
	advisor bool
	read    bool
	age     time.Duration
}

type seedReport struct {
	id          string
	name        string
	description string
	age         time.Duration
	downloaded  bool
}

var demoMessages = []seedMessage{
	{"demo-msg-1", "Welcome to your portal. Your first review is booked for next week.", true, true, 72 * time.Hour},
	{"demo-msg-2", "Thanks, looking forward to it.", false, true, 70 * time.Hour},
	{"demo-msg-3", "I have uploaded your quarterly report.", true, false, 3 * time.Hour},
	{"demo-msg-4", "Please confirm your risk profile before the meeting.", true, false, time.Hour},
}

var demoReports = []seedReport{
	{"demo-report-1", "Q1 Portfolio Review", "Quarterly performance summary", 60 * 24 * time.Hour, true},
	{"demo-report-2", "Q2 Portfolio Review", "Quarterly performance summary", 3 * time.Hour, false},
}

// DevData imports import/accounts.json when present and seeds the demo
// client with a short conversation and two reports. Failures are logged and
// never stop startup.
func DevData(ctx context.Context, d Deps) {
	if path := findAccountsFile(); path != "" {
		res, err := importer.ImportAccounts(ctx, d.Accounts, d.Profiles, d.Logger, path)
		if err != nil {
			d.Logger.Warn().Str("path", path).Str("error", err.Error()).Msg("seed: account import failed")
		} else {
			d.Logger.Info().Int("created", res.Created).Int("skipped", res.Skipped).Msg("seed: accounts imported")
		}
	}

	created, err := Demo(ctx, d, time.Now().UTC())
	if err != nil {
		d.Logger.Warn().Str("error", err.Error()).Msg("seed: failed to seed demo client")
		return
	}
	if created {
		d.Logger.Info().Str("email", DemoEmail).Msg("seed: demo client seeded")
	}
}

// Demo creates the demo account and its data. It reports false without
// writing anything when the account already exists.
func Demo(ctx context.Context, d Deps, now time.Time) (bool, error) {
	acc, err := d.Accounts.CreateAccount(ctx, auth.NewAccount{
		Email:       DemoEmail,
		Password:    DemoPassword,
		ClientID:    DemoClientID,
		DisplayName: "Demo Client",
	})
	if errors.Is(err, auth.ErrAccountExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create demo account: %w", err)
	}

	if _, err := d.Profiles.EnsureProfile(ctx, portal.AuthUser{
		UID:         acc.ClientID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
	}); err != nil {
		return false, fmt.Errorf("provision demo profile: %w", err)
	}

	for _, m := range demoMessages {
		ts := now.Add(-m.age)
		err := d.Docs.Set(ctx, interfaces.CollectionMessages, m.id, map[string]interface{}{
			mapper.FieldClientID:      acc.ClientID,
			mapper.FieldContent:       m.content,
			mapper.FieldIsFromAdvisor: m.advisor,
			mapper.FieldRead:          m.read,
			mapper.FieldTimestamp:     ts,
			mapper.FieldCreatedAt:     ts,
		}, false)
		if err != nil {
			return false, fmt.Errorf("seed message %s: %w", m.id, err)
		}
	}

	for _, r := range demoReports {
		date := now.Add(-r.age)
		fields := map[string]interface{}{
			mapper.FieldClientID:    acc.ClientID,
			mapper.FieldName:        r.name,
			mapper.FieldDescription: r.description,
			mapper.FieldDate:        date,
			mapper.FieldFileURL:     "/static/reports/" + r.id + ".pdf",
			mapper.FieldDownloaded:  r.downloaded,
		}
		if r.downloaded {
			fields[mapper.FieldDownloadedAt] = date.Add(time.Hour)
		}
		if err := d.Docs.Set(ctx, interfaces.CollectionReports, r.id, fields, false); err != nil {
			return false, fmt.Errorf("seed report %s: %w", r.id, err)
		}
	}

	return true, nil
}

// findAccountsFile searches for import/accounts.json relative to the
// executable directory first, then falls back to the current working
// directory.
func findAccountsFile() string {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), accountsFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat(accountsFileName); err == nil {
		return accountsFileName
	}

	return ""
}
