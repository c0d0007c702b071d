// Package config holds the INTERACTION_LIMITS policy namespace.
package config

import (
	"fmt"
	"sort"
	"time"
)

// AgeRange is a named age bracket with its own daily time budget.
type AgeRange struct {
	Min             int `json:"MIN" validate:"gte=0,lte=18"`
	Max             int `json:"MAX" validate:"gte=0,lte=18"`
	MaxDailyMinutes int `json:"MAX_DAILY_MINUTES" validate:"gt=0"`
}

// Config is the INTERACTION_LIMITS namespace of the policy file.
type Config struct {
	MaxDailyInteractions       int                 `json:"MAX_DAILY_INTERACTIONS" validate:"gt=0"`
	MaxInteractionDurationSecs int                 `json:"MAX_INTERACTION_DURATION_SECONDS" validate:"gt=0"`
	MinInteractionIntervalSecs int                 `json:"MIN_INTERACTION_INTERVAL_SECONDS" validate:"gte=0"`
	MaxConsecutiveInteractions int                 `json:"MAX_CONSECUTIVE_INTERACTIONS" validate:"gt=0"`
	CooldownPeriodMinutes      int                 `json:"COOLDOWN_PERIOD_MINUTES" validate:"gt=0"`
	AgeRanges                  map[string]AgeRange `json:"AGE_RANGES" validate:"required,min=1"`
	// Timezone anchors the local-midnight daily reset. Empty means UTC.
	Timezone string `json:"TIMEZONE"`
}

func (c Config) MaxSessionDuration() time.Duration {
	return time.Duration(c.MaxInteractionDurationSecs) * time.Second
}

func (c Config) MinInterval() time.Duration {
	return time.Duration(c.MinInteractionIntervalSecs) * time.Second
}

func (c Config) CooldownPeriod() time.Duration {
	return time.Duration(c.CooldownPeriodMinutes) * time.Minute
}

// Location resolves the configured timezone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BracketFor returns the age range covering the given age. Validate
// guarantees exactly one bracket matches any supported age, so a miss here
// means the caller skipped startup validation.
func (c Config) BracketFor(age int) (string, AgeRange, bool) {
	for name, r := range c.AgeRanges {
		if age >= r.Min && age <= r.Max {
			return name, r, true
		}
	}
	return "", AgeRange{}, false
}

// Validate enforces the bracket invariants: MIN <= MAX per bracket, no
// overlapping brackets, and full coverage of the supported ages so no child
// can hit an unmatched-age failure at request time.
func (c Config) Validate(minAge, maxAge int) []error {
	var errs []error

	names := make([]string, 0, len(c.AgeRanges))
	for name := range c.AgeRanges {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := c.AgeRanges[name]
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("INTERACTION_LIMITS.AGE_RANGES.%s: MIN %d exceeds MAX %d", name, r.Min, r.Max))
		}
	}

	for age := minAge; age <= maxAge; age++ {
		var matches []string
		for _, name := range names {
			r := c.AgeRanges[name]
			if age >= r.Min && age <= r.Max {
				matches = append(matches, name)
			}
		}
		switch {
		case len(matches) == 0:
			errs = append(errs, fmt.Errorf("INTERACTION_LIMITS.AGE_RANGES: age %d matches no bracket", age))
		case len(matches) > 1:
			errs = append(errs, fmt.Errorf("INTERACTION_LIMITS.AGE_RANGES: age %d matches overlapping brackets %v", age, matches))
		}
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("INTERACTION_LIMITS.TIMEZONE: %v", err))
		}
	}

	return errs
}

// DefaultConfig mirrors the deployed policy defaults; tests rely on it.
func DefaultConfig() Config {
	return Config{
		MaxDailyInteractions:       100,
		MaxInteractionDurationSecs: 1800,
		MinInteractionIntervalSecs: 3,
		MaxConsecutiveInteractions: 20,
		CooldownPeriodMinutes:      15,
		AgeRanges: map[string]AgeRange{
			"TODDLER": {Min: 0, Max: 5, MaxDailyMinutes: 30},
			"PRETEEN": {Min: 6, Max: 9, MaxDailyMinutes: 60},
			"TEEN":    {Min: 10, Max: 18, MaxDailyMinutes: 90},
		},
	}
}
