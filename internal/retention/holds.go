package retention

import (
	"context"

	"guardian/pkg/domain"
)

// ConsentVerifier is the slice of the consent ledger the hold check needs.
type ConsentVerifier interface {
	Verify(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) (bool, error)
}

// ConsentHolds blocks sweep deletions while an active verified consent
// covers the data category. Consent records themselves are never held; the
// ledger is retained for its own legal window regardless of consent state.
type ConsentHolds struct {
	consents ConsentVerifier
}

func NewConsentHolds(consents ConsentVerifier) *ConsentHolds {
	return &ConsentHolds{consents: consents}
}

func (h *ConsentHolds) HasHold(ctx context.Context, childID domain.ChildID, category domain.DataCategory) (bool, string, error) {
	scope, ok := scopeForCategory(category)
	if !ok {
		return false, "", nil
	}
	active, err := h.consents.Verify(ctx, childID, scope)
	if err != nil {
		return false, "", err
	}
	if !active {
		return false, "", nil
	}
	return true, "active parental consent covers scope " + scope.String(), nil
}
