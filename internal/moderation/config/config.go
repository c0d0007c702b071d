// Package config holds the moderation policy configuration.
// Values are loaded once at startup by the platform config loader and treated
// as an immutable snapshot afterwards.
package config

import (
	"fmt"
	"strings"

	"guardian/internal/moderation"
	"guardian/pkg/domain"
)

// LevelPolicy carries the thresholds and category toggles for one safety level.
type LevelPolicy struct {
	BlockThreshold   float64                      `json:"BLOCK_THRESHOLD" validate:"gte=0,lte=1"`
	WarningThreshold float64                      `json:"WARNING_THRESHOLD" validate:"gte=0,lte=1"`
	Categories       map[moderation.Category]bool `json:"CATEGORIES"`
	CustomBlockList  []string                     `json:"CUSTOM_BLOCK_LIST"`
	CustomAllowList  []string                     `json:"CUSTOM_ALLOW_LIST"`
}

// Config is the CONTENT_MODERATION namespace of the policy file.
type Config struct {
	Enabled             bool                               `json:"ENABLE_MODERATION"`
	Levels              map[domain.SafetyLevel]LevelPolicy `json:"SAFETY_LEVELS" validate:"required"`
	SafetyWords         []string                           `json:"SAFETY_WORDS"`
	AutoReportThreshold float64                            `json:"AUTO_REPORT_THRESHOLD" validate:"gte=0,lte=1"`
}

// Validate enforces cross-field policy invariants beyond struct tags.
// Every supported safety level must be present, warning must not exceed
// block, and category keys must belong to the closed enumeration.
func (c Config) Validate() []error {
	var errs []error
	for _, level := range []domain.SafetyLevel{domain.SafetyStrict, domain.SafetyModerate, domain.SafetyRelaxed} {
		lp, ok := c.Levels[level]
		if !ok {
			errs = append(errs, fmt.Errorf("CONTENT_MODERATION: missing safety level %q", level))
			continue
		}
		if lp.WarningThreshold > lp.BlockThreshold {
			errs = append(errs, fmt.Errorf("CONTENT_MODERATION.%s: WARNING_THRESHOLD %.2f exceeds BLOCK_THRESHOLD %.2f", level, lp.WarningThreshold, lp.BlockThreshold))
		}
		for cat := range lp.Categories {
			if !cat.IsValid() {
				errs = append(errs, fmt.Errorf("CONTENT_MODERATION.%s: unknown category %q", level, cat))
			}
		}
	}
	for level := range c.Levels {
		if !level.IsValid() {
			errs = append(errs, fmt.Errorf("CONTENT_MODERATION: unknown safety level %q", level))
		}
	}
	return errs
}

// PolicyFor returns the level policy for the given safety level.
// Callers must only pass validated levels; unknown levels fall back to strict.
func (c Config) PolicyFor(level domain.SafetyLevel) moderation.LevelPolicy {
	lp, ok := c.Levels[level]
	if !ok {
		lp = c.Levels[domain.SafetyStrict]
	}
	return moderation.LevelPolicy{
		BlockThreshold:      lp.BlockThreshold,
		WarningThreshold:    lp.WarningThreshold,
		Categories:          lp.Categories,
		CustomBlockList:     lp.CustomBlockList,
		CustomAllowList:     lp.CustomAllowList,
		AutoReportThreshold: c.AutoReportThreshold,
	}
}

// ModerationEnabled reports whether the moderation gate is active at all.
func (c Config) ModerationEnabled() bool {
	return c.Enabled
}

// IsSafetyWord reports whether the message contains a configured safety word.
// Matching is case-insensitive on substrings, same as the block list.
func (c Config) IsSafetyWord(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, w := range c.SafetyWords {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

// DefaultConfig returns a conservative policy used by tests and as a
// reference for the deployed policy file.
func DefaultConfig() Config {
	allOn := func() map[moderation.Category]bool {
		m := make(map[moderation.Category]bool, len(moderation.AllCategories()))
		for _, c := range moderation.AllCategories() {
			m[c] = true
		}
		return m
	}
	return Config{
		Enabled: true,
		Levels: map[domain.SafetyLevel]LevelPolicy{
			domain.SafetyStrict:   {BlockThreshold: 0.5, WarningThreshold: 0.3, Categories: allOn()},
			domain.SafetyModerate: {BlockThreshold: 0.7, WarningThreshold: 0.5, Categories: allOn()},
			domain.SafetyRelaxed:  {BlockThreshold: 0.85, WarningThreshold: 0.7, Categories: allOn()},
		},
		AutoReportThreshold: 0.9,
	}
}
