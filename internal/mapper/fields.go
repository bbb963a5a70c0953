// Package mapper converts raw stored documents into typed portal entities.
// Every function is total: malformed records are dropped by returning nil,
// never by failing.
package mapper

// Stored field names.
const (
	FieldClientID      = "clientId"
	FieldContent       = "content"
	FieldIsFromAdvisor = "isFromAdvisor"
	FieldStatus        = "status"
	FieldRead          = "read"
	FieldTimestamp     = "timestamp"
	FieldAttachment    = "attachment"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"

	FieldName         = "name"
	FieldDate         = "date"
	FieldFile         = "file"
	FieldFileURL      = "fileUrl"
	FieldURL          = "url"
	FieldDescription  = "description"
	FieldDownloaded   = "downloaded"
	FieldDownloadedAt = "downloadedAt"
	FieldViewed       = "viewed"
	FieldViewedAt     = "viewedAt"

	FieldFirstName         = "firstName"
	FieldLastName          = "lastName"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldInvestorProfile   = "investorProfile"
	FieldObjectives        = "objectives"
	FieldInvestmentHorizon = "investmentHorizon"
	FieldBroker            = "broker"
	FieldLastContact       = "lastContact"
	FieldCompany           = "company"

	FieldPasswordHash = "passwordHash"
	FieldDisplayName  = "displayName"
)

// Attachment sub-fields.
const (
	attachName       = "name"
	attachURL        = "url"
	attachType       = "type"
	attachComment    = "comment"
	attachSize       = "size"
	attachUploadedAt = "uploadedAt"
)

// DefaultAttachmentName labels files stored without a name.
const DefaultAttachmentName = "Document"
