package domain

import dErrors "guardian/pkg/domain-errors"

// DataCategory classifies stored child data for retention purposes. Each
// category carries its own retention window; categories are a closed set so
// new kinds of stored data require an explicit code change.
type DataCategory string

const (
	DataConversations   DataCategory = "conversation_data"
	DataVoiceRecordings DataCategory = "voice_recordings"
	DataInteractionLogs DataCategory = "interaction_logs"
	DataAnalytics       DataCategory = "analytics_data"
	DataSafetyLogs      DataCategory = "safety_logs"
	DataConsentRecords  DataCategory = "consent_records"
)

var validDataCategories = map[DataCategory]bool{
	DataConversations:   true,
	DataVoiceRecordings: true,
	DataInteractionLogs: true,
	DataAnalytics:       true,
	DataSafetyLogs:      true,
	DataConsentRecords:  true,
}

// AllDataCategories returns the supported categories in a stable order.
func AllDataCategories() []DataCategory {
	return []DataCategory{
		DataConversations,
		DataVoiceRecordings,
		DataInteractionLogs,
		DataAnalytics,
		DataSafetyLogs,
		DataConsentRecords,
	}
}

// ParseDataCategory constructs a DataCategory from external input.
func ParseDataCategory(s string) (DataCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "data category cannot be empty")
	}
	c := DataCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid data category")
	}
	return c, nil
}

// IsValid checks if the data category is one of the supported enum values.
func (c DataCategory) IsValid() bool {
	return validDataCategories[c]
}

// String returns the string representation of the category.
func (c DataCategory) String() string {
	return string(c)
}
