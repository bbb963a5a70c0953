package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// SendMessage stores a client-authored message and bumps the client's last
// contact time. Blank content is rejected without writing.
func (s *Service) SendMessage(ctx context.Context, ownerID, content string, attachment *models.Attachment) (string, error) {
	if ownerID == "" {
		return "", ErrMissingOwner
	}
	text := strings.TrimSpace(content)
	if text == "" && attachment == nil {
		return "", ErrEmptyMessage
	}

	fields := map[string]interface{}{
		mapper.FieldClientID:      ownerID,
		mapper.FieldContent:       text,
		mapper.FieldIsFromAdvisor: false,
		mapper.FieldStatus:        string(models.StatusSent),
		mapper.FieldRead:          false,
		mapper.FieldTimestamp:     interfaces.ServerTimestamp,
		mapper.FieldCreatedAt:     interfaces.ServerTimestamp,
		mapper.FieldUpdatedAt:     interfaces.ServerTimestamp,
	}
	if attachment != nil {
		fields[mapper.FieldAttachment] = attachmentFields(attachment)
	}

	id, err := s.docs.Append(ctx, interfaces.CollectionMessages, fields)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	err = s.docs.Set(ctx, interfaces.CollectionClients, ownerID, map[string]interface{}{
		mapper.FieldLastContact: interfaces.ServerTimestamp,
	}, true)
	if err != nil {
		s.logger.Warn().Str("client_id", ownerID).Str("error", err.Error()).Msg("failed to update last contact")
	}

	s.logger.Debug().Str("client_id", ownerID).Str("message_id", id).Msg("message sent")
	return id, nil
}

func attachmentFields(a *models.Attachment) map[string]interface{} {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = mapper.DefaultAttachmentName
	}
	out := map[string]interface{}{
		"name": name,
		"url":  strings.TrimSpace(a.URL),
	}
	if a.Type != "" {
		out["type"] = a.Type
	}
	if a.Comment != "" {
		out["comment"] = a.Comment
	}
	if a.Size != "" {
		out["size"] = a.Size
	}
	if a.UploadedAt != nil {
		out["uploadedAt"] = a.UploadedAt.UTC()
	} else {
		out["uploadedAt"] = interfaces.ServerTimestamp
	}
	return out
}

// MarkMessagesRead sets read on every id in one batch. Marking an already
// read message again is harmless.
func (s *Service) MarkMessagesRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.docs.BatchUpdate(ctx, interfaces.CollectionMessages, ids, map[string]interface{}{
		mapper.FieldRead:      true,
		mapper.FieldUpdatedAt: interfaces.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}
