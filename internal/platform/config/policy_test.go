package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	limitscfg "guardian/internal/limits/config"
	dErrors "guardian/pkg/domain-errors"
)

type PolicySuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) writePolicy(content string) string {
	path := filepath.Join(s.T().TempDir(), "policy.json")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *PolicySuite) TestDefaultPolicyIsValid() {
	s.NoError(DefaultPolicy().Validate())
}

func (s *PolicySuite) TestEmptyPathUsesDefaults() {
	policy, err := LoadPolicy("")
	s.Require().NoError(err)
	s.NoError(policy.Validate())
}

func (s *PolicySuite) TestMissingFileFails() {
	_, err := LoadPolicy("/nonexistent/policy.json")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConfiguration))
}

func (s *PolicySuite) TestUnknownKeysAbortStartup() {
	path := s.writePolicy(`{"CONTENT_MODERATlON": {}}`)
	_, err := LoadPolicy(path)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConfiguration))
}

func (s *PolicySuite) TestWarningAboveBlockIsFatal() {
	policy := DefaultPolicy()
	strict := policy.Moderation.Levels["strict"]
	strict.WarningThreshold = strict.BlockThreshold + 0.1
	policy.Moderation.Levels["strict"] = strict

	err := policy.Validate()
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConfiguration))
	s.Contains(err.Error(), "WARNING_THRESHOLD")
}

func (s *PolicySuite) TestAgeRangeGapIsFatal() {
	policy := DefaultPolicy()
	policy.Limits.AgeRanges = map[string]limitscfg.AgeRange{
		"young": {Min: 3, Max: 6, MaxDailyMinutes: 30},
		// Ages 7-9 are uncovered.
		"old": {Min: 10, Max: 13, MaxDailyMinutes: 60},
	}

	err := policy.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), "AGE_RANGES")
}

func (s *PolicySuite) TestOverlappingAgeRangesAreFatal() {
	policy := DefaultPolicy()
	policy.Limits.AgeRanges = map[string]limitscfg.AgeRange{
		"young": {Min: 3, Max: 9, MaxDailyMinutes: 30},
		"old":   {Min: 8, Max: 13, MaxDailyMinutes: 60},
	}

	s.Error(policy.Validate())
}

func (s *PolicySuite) TestInvalidEmergencyContactEmail() {
	policy := DefaultPolicy()
	policy.Parental.EmergencyContacts = []EmergencyContact{
		{Name: "On Call", Email: "not-an-email"},
	}

	err := policy.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), "Email")
}

func (s *PolicySuite) TestErrorsAggregate() {
	policy := DefaultPolicy()
	strict := policy.Moderation.Levels["strict"]
	strict.WarningThreshold = strict.BlockThreshold + 0.1
	policy.Moderation.Levels["strict"] = strict
	policy.Privacy.RetentionDays["conversation_data"] = -1

	err := policy.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), "WARNING_THRESHOLD")
	s.Contains(err.Error(), "conversation_data")
}

const fullPolicyJSON = `{
  "CONTENT_MODERATION": {
    "ENABLE_MODERATION": false,
    "SAFETY_LEVELS": {
      "strict": {
        "BLOCK_THRESHOLD": 0.5,
        "WARNING_THRESHOLD": 0.3,
        "CATEGORIES": {"toxicity": true, "violence": true, "self_harm": true},
        "CUSTOM_BLOCK_LIST": ["scary"],
        "CUSTOM_ALLOW_LIST": []
      },
      "moderate": {
        "BLOCK_THRESHOLD": 0.7,
        "WARNING_THRESHOLD": 0.5,
        "CATEGORIES": {"toxicity": true, "violence": true},
        "CUSTOM_BLOCK_LIST": [],
        "CUSTOM_ALLOW_LIST": []
      },
      "relaxed": {
        "BLOCK_THRESHOLD": 0.9,
        "WARNING_THRESHOLD": 0.7,
        "CATEGORIES": {"toxicity": true},
        "CUSTOM_BLOCK_LIST": [],
        "CUSTOM_ALLOW_LIST": ["dragon"]
      }
    },
    "SAFETY_WORDS": ["help me", "emergency"],
    "AUTO_REPORT_THRESHOLD": 0.95
  },
  "INTERACTION_LIMITS": {
    "MAX_DAILY_INTERACTIONS": 25,
    "MAX_INTERACTION_DURATION_SECONDS": 1800,
    "MIN_INTERACTION_INTERVAL_SECONDS": 5,
    "MAX_CONSECUTIVE_INTERACTIONS": 10,
    "COOLDOWN_PERIOD_MINUTES": 15,
    "AGE_RANGES": {
      "preschool": {"MIN": 3, "MAX": 5, "MAX_DAILY_MINUTES": 30},
      "school": {"MIN": 6, "MAX": 9, "MAX_DAILY_MINUTES": 60},
      "preteen": {"MIN": 10, "MAX": 13, "MAX_DAILY_MINUTES": 90}
    },
    "TIMEZONE": "America/New_York"
  },
  "PRIVACY_COMPLIANCE": {
    "DATA_RETENTION_DAYS": {
      "conversation_data": 30,
      "voice_recordings": 14,
      "interaction_logs": 60,
      "analytics_data": 90,
      "safety_logs": 365,
      "consent_records": 2555
    },
    "SWEEP_INTERVAL_SECONDS": 3600,
    "REVOCATION_GRACE_DAYS": 7,
    "OVERDUE_AFTER_HOURS": 24
  },
  "PARENTAL_CONTROLS": {
    "EMERGENCY_CONTACTS": [
      {"NAME": "On Call", "EMAIL": "oncall@example.com"}
    ],
    "ACTIVITY_REPORTS": true
  }
}`

func TestLoadPolicy_FullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(fullPolicyJSON), 0o600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.False(t, policy.Moderation.Enabled)
	assert.Equal(t, 25, policy.Limits.MaxDailyInteractions)
	days, ok := policy.Privacy.RetentionDays["voice_recordings"]
	require.True(t, ok)
	assert.Equal(t, 14, days)
	require.Len(t, policy.Parental.EmergencyContacts, 1)
	assert.Equal(t, "oncall@example.com", policy.Parental.EmergencyContacts[0].Email)
}
