package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	limitscfg "guardian/internal/limits/config"
	moderationcfg "guardian/internal/moderation/config"
	retentioncfg "guardian/internal/retention/config"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// EmergencyContact is a person notified alongside the parent account on
// critical events.
type EmergencyContact struct {
	Name  string `json:"NAME" validate:"required"`
	Email string `json:"EMAIL" validate:"required,email"`
}

// ParentalControls configures the notification surface.
type ParentalControls struct {
	EmergencyContacts []EmergencyContact `json:"EMERGENCY_CONTACTS" validate:"dive"`
	ActivityReports   bool               `json:"ACTIVITY_REPORTS"`
}

// Policy is the process-wide safety policy. Loaded once at startup,
// validated as a whole, and treated as immutable afterwards.
type Policy struct {
	Moderation moderationcfg.Config `json:"CONTENT_MODERATION"`
	Limits     limitscfg.Config     `json:"INTERACTION_LIMITS"`
	Privacy    retentioncfg.Config  `json:"PRIVACY_COMPLIANCE"`
	Parental   ParentalControls     `json:"PARENTAL_CONTROLS"`
}

// DefaultPolicy returns the shipped policy, used when no policy file is
// configured.
func DefaultPolicy() Policy {
	return Policy{
		Moderation: moderationcfg.DefaultConfig(),
		Limits:     limitscfg.DefaultConfig(),
		Privacy:    retentioncfg.DefaultConfig(),
	}
}

// LoadPolicy reads and validates the policy file. Any violation is fatal:
// the returned error aggregates every problem found so operators can fix
// the file in one pass. Unknown keys are rejected to catch typos that would
// otherwise silently weaken the policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "read policy file")
	}

	var policy Policy
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&policy); err != nil {
		return Policy{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "parse policy file")
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate checks range bounds and the cross-field invariants each section
// defines, rolling every violation into a single configuration error.
func (p Policy) Validate() error {
	var errs []error

	v := validator.New()
	if err := v.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("policy: field %s fails rule %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	errs = append(errs, p.Moderation.Validate()...)
	errs = append(errs, p.Limits.Validate(domain.MinChildAge, domain.MaxChildAge)...)
	errs = append(errs, p.Privacy.Validate()...)

	if len(errs) == 0 {
		return nil
	}
	return dErrors.Wrap(errors.Join(errs...), dErrors.CodeConfiguration, "invalid safety policy")
}
