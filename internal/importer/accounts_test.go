package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/portal"
	"github.com/bobmcallan/advisor-portal/internal/storage/badger"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	docs     interfaces.DocumentGateway
	accounts *auth.Service
	profiles *portal.Service
	logger   *common.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := common.NewSilentLogger()
	mgr, err := badger.NewManager(logger, &config.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return &testEnv{
		docs:     mgr.Documents(),
		accounts: auth.NewService(mgr.Documents(), auth.NewLockoutTracker(5, 15*time.Minute), logger),
		profiles: portal.NewService(mgr.Documents(), logger),
		logger:   logger,
	}
}

func (e *testEnv) run(t *testing.T, path string) (Result, error) {
	t.Helper()
	return ImportAccounts(context.Background(), e.accounts, e.profiles, e.logger, path)
}

func writeAccountsJSON(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "accounts.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test accounts file: %v", err)
	}
	return path
}

func TestImportAccounts_ValidJSON(t *testing.T) {
	env := newTestEnv(t)
	path := writeAccountsJSON(t, t.TempDir(), `{
		"accounts": [
			{"email": "Ada@Example.com", "password": "pass1", "client_id": "client-ada", "display_name": "Ada Lovelace"},
			{"email": "grace@example.com", "password": "pass2"}
		]
	}`)

	res, err := env.run(t, path)
	if err != nil {
		t.Fatalf("ImportAccounts failed: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 {
		t.Errorf("expected 2 created, got %+v", res)
	}

	acc, err := env.accounts.Login(context.Background(), "ada@example.com", "pass1")
	if err != nil {
		t.Fatalf("expected imported account to log in: %v", err)
	}
	if acc.ClientID != "client-ada" {
		t.Errorf("expected client-ada, got %s", acc.ClientID)
	}

	profile, err := env.profiles.GetProfile(context.Background(), "client-ada")
	if err != nil {
		t.Fatalf("expected provisioned profile: %v", err)
	}
	if profile.FirstName != "Ada" || profile.LastName != "Lovelace" {
		t.Errorf("unexpected profile names %q %q", profile.FirstName, profile.LastName)
	}

	grace, err := env.accounts.Login(context.Background(), "grace@example.com", "pass2")
	if err != nil {
		t.Fatalf("expected grace to log in: %v", err)
	}
	if grace.ClientID == "" {
		t.Error("expected generated client id")
	}
}

func TestImportAccounts_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	path := writeAccountsJSON(t, t.TempDir(), `{
		"accounts": [{"email": "ada@example.com", "password": "pass1", "client_id": "client-ada"}]
	}`)

	if _, err := env.run(t, path); err != nil {
		t.Fatalf("first ImportAccounts failed: %v", err)
	}
	res, err := env.run(t, path)
	if err != nil {
		t.Fatalf("second ImportAccounts failed: %v", err)
	}
	if res.Created != 0 || res.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %+v", res)
	}
}

func TestImportAccounts_PasswordBcryptHashed(t *testing.T) {
	env := newTestEnv(t)
	path := writeAccountsJSON(t, t.TempDir(), `{
		"accounts": [{"email": "ada@example.com", "password": "mysecret", "client_id": "client-ada"}]
	}`)

	if _, err := env.run(t, path); err != nil {
		t.Fatalf("ImportAccounts failed: %v", err)
	}

	doc, err := env.docs.GetOne(context.Background(), interfaces.CollectionAccounts, "ada@example.com")
	if err != nil || doc == nil {
		t.Fatalf("failed to get account: %v", err)
	}
	hash, _ := doc.Fields["passwordHash"].(string)
	if hash == "mysecret" {
		t.Error("password stored as plaintext, expected bcrypt hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("mysecret")); err != nil {
		t.Errorf("stored password does not match original via bcrypt: %v", err)
	}
}

func TestImportAccounts_MissingPassword(t *testing.T) {
	env := newTestEnv(t)
	path := writeAccountsJSON(t, t.TempDir(), `{"accounts": [{"email": "ada@example.com"}]}`)

	if _, err := env.run(t, path); err == nil {
		t.Error("expected error for an account without password")
	}
}

func TestImportAccounts_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	path := writeAccountsJSON(t, t.TempDir(), "not valid json {{{")

	if _, err := env.run(t, path); err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestImportAccounts_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "/nonexistent/accounts.json"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
