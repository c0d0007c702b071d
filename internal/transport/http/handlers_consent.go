package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardian/internal/consent"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	platformstrings "guardian/pkg/platform/strings"
	"guardian/pkg/requestcontext"
)

// ConsentService is the slice of the consent ledger the handler needs.
type ConsentService interface {
	Record(ctx context.Context, req consent.GrantRequest) (*consent.Record, error)
	Revoke(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) error
	History(ctx context.Context, childID domain.ChildID) ([]*consent.Record, error)
}

// Ownership verifies the authenticated parent owns the child.
type Ownership interface {
	Owned(ctx context.Context, parentID domain.ParentID, childID domain.ChildID) (*domain.ChildProfile, error)
}

// ConsentHandler serves the COPPA consent endpoints. All routes require a
// parent bearer token; the router applies the auth middleware.
type ConsentHandler struct {
	consents ConsentService
	children Ownership
	logger   *slog.Logger
}

func NewConsentHandler(consents ConsentService, children Ownership, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{consents: consents, children: children, logger: logger}
}

// Register registers the consent routes with the chi router.
func (h *ConsentHandler) Register(r chi.Router) {
	r.Post("/coppa/consent", h.handleSubmit)
	r.Post("/coppa/consent/revoke", h.handleRevoke)
}

type submitConsentRequest struct {
	ChildID  string   `json:"child_id"`
	Scopes   []string `json:"scopes"`
	Method   string   `json:"verification_method"`
	Verified bool     `json:"verified"`
}

func (h *ConsentHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	var req submitConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	childID, err := domain.ParseChildID(req.ChildID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.children.Owned(ctx, parentID, childID); err != nil {
		writeError(w, err)
		return
	}

	rawScopes := platformstrings.DedupeAndTrimLower(req.Scopes)
	scopes := make([]domain.ConsentScope, 0, len(rawScopes))
	for _, raw := range rawScopes {
		scope, err := domain.ParseConsentScope(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		scopes = append(scopes, scope)
	}

	record, err := h.consents.Record(ctx, consent.GrantRequest{
		ParentID: parentID,
		ChildID:  childID,
		Scopes:   scopes,
		Verified: req.Verified,
		Method:   req.Method,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "consent submission rejected",
			"child_id", childID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type revokeConsentRequest struct {
	ChildID string `json:"child_id"`
	Scope   string `json:"scope"`
}

func (h *ConsentHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	var req revokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	childID, err := domain.ParseChildID(req.ChildID)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := domain.ParseConsentScope(req.Scope)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.children.Owned(ctx, parentID, childID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.consents.Revoke(ctx, childID, scope); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
