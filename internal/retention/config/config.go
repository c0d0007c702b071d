// Package config defines the data retention policy.
package config

import (
	"fmt"
	"time"

	"guardian/pkg/domain"
)

// Config controls how long each data category is kept and how the sweep
// loop behaves. Loaded from the policy file; zero values fall back to
// DefaultConfig at the call site, not here.
type Config struct {
	// RetentionDays maps each data category to its retention window. Every
	// category must be present with a positive value.
	RetentionDays map[domain.DataCategory]int `json:"DATA_RETENTION_DAYS"`

	SweepIntervalSeconds int `json:"SWEEP_INTERVAL_SECONDS" validate:"gt=0"`

	// RevocationGraceDays delays deletion after a consent revocation or a
	// parent request, giving the parent a window to reverse the decision.
	RevocationGraceDays int `json:"REVOCATION_GRACE_DAYS" validate:"gte=0"`

	// OverdueAfterHours is how long a ticket may sit pending past its
	// eligible date before an operator alert fires.
	OverdueAfterHours int `json:"OVERDUE_AFTER_HOURS" validate:"gt=0"`
}

// DefaultConfig mirrors the shipped retention policy. Safety logs and
// consent records carry the long legally mandated windows.
func DefaultConfig() Config {
	return Config{
		RetentionDays: map[domain.DataCategory]int{
			domain.DataConversations:   30,
			domain.DataVoiceRecordings: 7,
			domain.DataInteractionLogs: 60,
			domain.DataAnalytics:       90,
			domain.DataSafetyLogs:      365,
			domain.DataConsentRecords:  2555,
		},
		SweepIntervalSeconds: 3600,
		RevocationGraceDays:  7,
		OverdueAfterHours:    24,
	}
}

// Validate returns every policy violation found. Any error is fatal at
// startup.
func (c *Config) Validate() []error {
	var errs []error

	for category := range c.RetentionDays {
		if !category.IsValid() {
			errs = append(errs, fmt.Errorf("retention: unknown data category %q", category))
		}
	}
	for _, category := range domain.AllDataCategories() {
		days, ok := c.RetentionDays[category]
		if !ok {
			errs = append(errs, fmt.Errorf("retention: missing retention window for %q", category))
			continue
		}
		if days <= 0 {
			errs = append(errs, fmt.Errorf("retention: window for %q must be positive, got %d", category, days))
		}
	}
	if c.SweepIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("retention: SWEEP_INTERVAL_SECONDS must be positive"))
	}
	if c.RevocationGraceDays < 0 {
		errs = append(errs, fmt.Errorf("retention: REVOCATION_GRACE_DAYS must not be negative"))
	}
	if c.OverdueAfterHours <= 0 {
		errs = append(errs, fmt.Errorf("retention: OVERDUE_AFTER_HOURS must be positive"))
	}
	return errs
}

// Window returns the retention window for a category.
func (c *Config) Window(category domain.DataCategory) (time.Duration, bool) {
	days, ok := c.RetentionDays[category]
	if !ok {
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) RevocationGrace() time.Duration {
	return time.Duration(c.RevocationGraceDays) * 24 * time.Hour
}

func (c *Config) OverdueAfter() time.Duration {
	return time.Duration(c.OverdueAfterHours) * time.Hour
}
