package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, interfaces.DocumentGateway) {
	t.Helper()
	mgr, err := badger.NewManager(common.NewSilentLogger(), &config.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return NewService(mgr.Documents(), common.NewSilentLogger()), mgr.Documents()
}

func TestSendMessage(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	docs.Set(ctx, interfaces.CollectionClients, "c1", map[string]interface{}{"firstName": "Ada"}, false)

	id, err := svc.SendMessage(ctx, "c1", "  When is my next review?  ", nil)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	doc, _ := docs.GetOne(ctx, interfaces.CollectionMessages, id)
	if doc == nil {
		t.Fatal("expected stored message")
	}
	m := mapper.ToMessage(*doc, testNow())
	if m.Content != "When is my next review?" {
		t.Errorf("expected trimmed content, got %q", m.Content)
	}
	if m.Sender != models.SenderClient || m.Status != models.StatusSent || m.Read {
		t.Errorf("unexpected message %+v", m)
	}
	if _, ok := doc.Fields["timestamp"].(string); !ok {
		t.Errorf("expected server timestamp resolved, got %v", doc.Fields["timestamp"])
	}

	client, _ := docs.GetOne(ctx, interfaces.CollectionClients, "c1")
	if client.Fields["lastContact"] == nil {
		t.Error("expected lastContact updated")
	}
	if client.Fields["firstName"] != "Ada" {
		t.Error("lastContact update must merge into the profile")
	}
}

func TestSendMessage_EmptyIgnored(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "c1", "   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	all, _ := docs.Find(ctx, interfaces.Query{Collection: interfaces.CollectionMessages})
	if len(all) != 0 {
		t.Errorf("expected no write, found %d messages", len(all))
	}
}

func TestSendMessage_WithAttachment(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	id, err := svc.SendMessage(ctx, "c1", "", &models.Attachment{URL: "https://files.example.com/id.pdf"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	doc, _ := docs.GetOne(ctx, interfaces.CollectionMessages, id)
	m := mapper.ToMessage(*doc, testNow())
	if m.Attachment == nil || m.Attachment.Name != "Document" || m.Attachment.UploadedAt == nil {
		t.Errorf("unexpected attachment %+v", m.Attachment)
	}
}

func TestMarkMessagesRead_Idempotent(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	id, _ := docs.Append(ctx, interfaces.CollectionMessages, map[string]interface{}{
		"clientId": "c1", "isFromAdvisor": true, "read": false,
	})

	for i := 0; i < 2; i++ {
		if err := svc.MarkMessagesRead(ctx, []string{id}); err != nil {
			t.Fatalf("MarkMessagesRead call %d failed: %v", i+1, err)
		}
	}
	doc, _ := docs.GetOne(ctx, interfaces.CollectionMessages, id)
	if doc.Fields["read"] != true {
		t.Errorf("expected read=true, got %v", doc.Fields["read"])
	}
	if err := svc.MarkMessagesRead(ctx, nil); err != nil {
		t.Errorf("empty id set should be a no-op: %v", err)
	}
}

func TestMarkReportDownloaded(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	docs.Set(ctx, interfaces.CollectionReports, "r1", map[string]interface{}{
		"clientId": "c1", "fileUrl": "https://x", "downloaded": false,
	}, false)

	if err := svc.MarkReportDownloaded(ctx, "c2", "r1"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected other owner to get ErrReportNotFound, got %v", err)
	}
	if err := svc.MarkReportDownloaded(ctx, "c1", "r1"); err != nil {
		t.Fatalf("MarkReportDownloaded failed: %v", err)
	}

	doc, _ := docs.GetOne(ctx, interfaces.CollectionReports, "r1")
	first := doc.Fields["downloadedAt"]
	if doc.Fields["downloaded"] != true || first == nil {
		t.Fatalf("expected downloaded with timestamp, got %v", doc.Fields)
	}

	if err := svc.MarkReportDownloaded(ctx, "c1", "r1"); err != nil {
		t.Fatalf("second MarkReportDownloaded failed: %v", err)
	}
	doc, _ = docs.GetOne(ctx, interfaces.CollectionReports, "r1")
	if doc.Fields["downloadedAt"] != first {
		t.Error("downloaded is terminal, the timestamp must not change")
	}
}

func TestMarkReportViewed_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.MarkReportViewed(context.Background(), "c1", "nope"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}
