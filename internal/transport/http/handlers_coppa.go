package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardian/internal/consent"
	"guardian/internal/limits"
	"guardian/internal/retention"
	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

// SafetyEvents is the event listing surface used by export and the
// safety-events endpoint.
type SafetyEvents interface {
	ListByChild(ctx context.Context, childID domain.ChildID, f safety.Filter) (*safety.Page, error)
}

// UsageStats exposes the child's current interaction state for export.
type UsageStats interface {
	State(ctx context.Context, childID domain.ChildID) (*limits.InteractionState, error)
}

// RetentionService opens parent-initiated deletion tickets and lists
// existing ones.
type RetentionService interface {
	RequestDeletion(ctx context.Context, childID domain.ChildID, categories []domain.DataCategory) (*retention.DeletionReceipt, error)
	TicketsForChild(ctx context.Context, childID domain.ChildID) ([]*retention.Ticket, error)
}

// CoppaHandler serves data export and deletion requests. All routes require
// a parent bearer token.
type CoppaHandler struct {
	children  Ownership
	consents  ConsentService
	events    SafetyEvents
	usage     UsageStats
	retention RetentionService
	logger    *slog.Logger
}

func NewCoppaHandler(children Ownership, consents ConsentService, events SafetyEvents, usage UsageStats, ret RetentionService, logger *slog.Logger) *CoppaHandler {
	return &CoppaHandler{
		children:  children,
		consents:  consents,
		events:    events,
		usage:     usage,
		retention: ret,
		logger:    logger,
	}
}

// Register registers the COPPA data routes with the chi router.
func (h *CoppaHandler) Register(r chi.Router) {
	r.Get("/coppa/children/{childID}/export", h.handleExport)
	r.Post("/coppa/children/{childID}/deletion-request", h.handleDeletionRequest)
}

type exportResponse struct {
	Profile        *domain.ChildProfile      `json:"profile"`
	ConsentHistory []*consent.Record         `json:"consent_history"`
	SafetyEvents   []*safety.Event           `json:"safety_events"`
	UsageStats     *limits.InteractionState  `json:"usage_stats,omitempty"`
	Tickets        []*retention.Ticket       `json:"retention_tickets"`
	GeneratedAt    time.Time                 `json:"generated_at"`
}

func (h *CoppaHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	childID, err := domain.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.children.Owned(ctx, parentID, childID)
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := h.consents.History(ctx, childID)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.events.ListByChild(ctx, childID, safety.Filter{Limit: 500})
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := h.usage.State(ctx, childID)
	if err != nil {
		writeError(w, err)
		return
	}
	tickets, err := h.retention.TicketsForChild(ctx, childID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "data export generated",
		"child_id", childID,
		"parent_id", parentID,
		"request_id", requestcontext.RequestID(ctx),
	)
	writeJSON(w, http.StatusOK, exportResponse{
		Profile:        profile,
		ConsentHistory: history,
		SafetyEvents:   page.Events,
		UsageStats:     state,
		Tickets:        tickets,
		GeneratedAt:    time.Now().UTC(),
	})
}

type deletionRequest struct {
	Categories []string `json:"data_categories"`
}

func (h *CoppaHandler) handleDeletionRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	childID, err := domain.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.children.Owned(ctx, parentID, childID); err != nil {
		writeError(w, err)
		return
	}

	var req deletionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}
	categories := make([]domain.DataCategory, 0, len(req.Categories))
	for _, raw := range req.Categories {
		category, err := domain.ParseDataCategory(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		categories = append(categories, category)
	}

	receipt, err := h.retention.RequestDeletion(ctx, childID, categories)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "deletion request accepted",
		"child_id", childID,
		"parent_id", parentID,
		"confirmation_code", receipt.ConfirmationCode,
		"request_id", requestcontext.RequestID(ctx),
	)
	writeJSON(w, http.StatusAccepted, receipt)
}
