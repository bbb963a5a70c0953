package mapper

import (
	"strings"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// ToMessage maps a stored message. Records without an owning client ID are
// dropped.
func ToMessage(doc interfaces.Document, now time.Time) *models.Message {
	clientID := trimmedField(doc.Fields, FieldClientID)
	if doc.ID == "" || clientID == "" {
		return nil
	}

	sender := models.SenderClient
	if boolField(doc.Fields, FieldIsFromAdvisor) {
		sender = models.SenderAdvisor
	}

	return &models.Message{
		ID:         doc.ID,
		ClientID:   clientID,
		Content:    stringField(doc.Fields, FieldContent),
		Timestamp:  ParseTimestamp(doc.Fields[FieldTimestamp], now),
		Sender:     sender,
		Status:     ParseStatus(doc.Fields[FieldStatus]),
		Read:       boolField(doc.Fields, FieldRead),
		Attachment: ToAttachment(doc.Fields[FieldAttachment]),
	}
}

// ToMessages maps docs, dropping malformed records.
func ToMessages(docs []interfaces.Document, now time.Time) []models.Message {
	out := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		if m := ToMessage(doc, now); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// ParseStatus falls back to sent for missing or unknown values.
func ParseStatus(v interface{}) models.MessageStatus {
	s, _ := v.(string)
	switch models.MessageStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.StatusPending:
		return models.StatusPending
	case models.StatusAnswered:
		return models.StatusAnswered
	case models.StatusInReview:
		return models.StatusInReview
	}
	return models.StatusSent
}

// ToAttachment maps a file descriptor. It returns nil unless v is an object.
func ToAttachment(v interface{}) *models.Attachment {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	name := trimmedField(raw, attachName)
	if name == "" {
		name = DefaultAttachmentName
	}
	return &models.Attachment{
		Name:       name,
		URL:        trimmedField(raw, attachURL),
		Type:       trimmedField(raw, attachType),
		Comment:    trimmedField(raw, attachComment),
		Size:       sizeString(raw[attachSize]),
		UploadedAt: optionalTime(raw[attachUploadedAt]),
	}
}

// ToReport maps a stored report. Reports whose file URL cannot be resolved
// from file.url, fileUrl or url are dropped.
func ToReport(doc interfaces.Document, now time.Time) *models.Report {
	if doc.ID == "" {
		return nil
	}

	file := ToAttachment(doc.Fields[FieldFile])
	if file == nil {
		file = &models.Attachment{Name: DefaultAttachmentName}
	}
	if file.URL == "" {
		file.URL = trimmedField(doc.Fields, FieldFileURL)
	}
	if file.URL == "" {
		file.URL = trimmedField(doc.Fields, FieldURL)
	}
	if file.URL == "" {
		return nil
	}

	name := trimmedField(doc.Fields, FieldName)
	if name == "" {
		name = file.Name
	}

	downloadedAt := optionalTime(doc.Fields[FieldDownloadedAt])
	viewedAt := optionalTime(doc.Fields[FieldViewedAt])

	return &models.Report{
		ID:           doc.ID,
		ClientID:     trimmedField(doc.Fields, FieldClientID),
		Name:         name,
		Date:         ParseTimestamp(doc.Fields[FieldDate], now),
		File:         *file,
		Description:  trimmedField(doc.Fields, FieldDescription),
		Downloaded:   boolField(doc.Fields, FieldDownloaded),
		DownloadedAt: downloadedAt,
		Viewed:       boolField(doc.Fields, FieldViewed),
		ViewedAt:     viewedAt,
	}
}

// ToReports maps docs, dropping reports without a file URL.
func ToReports(docs []interfaces.Document, now time.Time) []models.Report {
	out := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		if r := ToReport(doc, now); r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// ToProfile maps a stored client record. Missing fields become empty and
// the risk classification defaults to moderate.
func ToProfile(doc interfaces.Document) models.ClientProfile {
	return models.ClientProfile{
		ID:                doc.ID,
		FirstName:         stringField(doc.Fields, FieldFirstName),
		LastName:          stringField(doc.Fields, FieldLastName),
		Email:             stringField(doc.Fields, FieldEmail),
		Phone:             stringField(doc.Fields, FieldPhone),
		InvestorRisk:      ParseRisk(doc.Fields[FieldInvestorProfile]),
		Objectives:        stringField(doc.Fields, FieldObjectives),
		InvestmentHorizon: stringField(doc.Fields, FieldInvestmentHorizon),
		BrokerName:        trimmedField(doc.Fields, FieldBroker),
	}
}

// ParseRisk accepts the English classifications and the legacy Spanish
// labels in any case, defaulting to moderate.
func ParseRisk(v interface{}) models.InvestorRisk {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative", "conservador":
		return models.RiskConservative
	case "aggressive", "agresivo":
		return models.RiskAggressive
	}
	return models.RiskModerate
}

// ToBroker maps a stored broker.
func ToBroker(doc interfaces.Document) models.Broker {
	name := trimmedField(doc.Fields, FieldName)
	if name == "" {
		name = "Broker"
	}
	return models.Broker{
		ID:      doc.ID,
		Name:    name,
		Email:   trimmedField(doc.Fields, FieldEmail),
		Phone:   trimmedField(doc.Fields, FieldPhone),
		Company: trimmedField(doc.Fields, FieldCompany),
	}
}

// ToAccount maps a stored login account. Accounts without a client ID or
// password hash are unusable and dropped.
func ToAccount(doc interfaces.Document) *models.Account {
	clientID := trimmedField(doc.Fields, FieldClientID)
	hash := stringField(doc.Fields, FieldPasswordHash)
	if clientID == "" || hash == "" {
		return nil
	}
	email := trimmedField(doc.Fields, FieldEmail)
	if email == "" {
		email = doc.ID
	}
	return &models.Account{
		Email:        strings.ToLower(email),
		ClientID:     clientID,
		PasswordHash: hash,
		DisplayName:  trimmedField(doc.Fields, FieldDisplayName),
		Phone:        trimmedField(doc.Fields, FieldPhone),
	}
}
