package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

const (
	defaultEventPageSize = 50
	maxEventPageSize     = 200
)

// SafetyHandler lists a child's safety events for the owning parent.
type SafetyHandler struct {
	children Ownership
	events   SafetyEvents
	logger   *slog.Logger
}

func NewSafetyHandler(children Ownership, events SafetyEvents, logger *slog.Logger) *SafetyHandler {
	return &SafetyHandler{children: children, events: events, logger: logger}
}

// Register registers the safety event routes with the chi router.
func (h *SafetyHandler) Register(r chi.Router) {
	r.Get("/children/{childID}/safety-events", h.handleList)
}

type safetyEventsResponse struct {
	Events []*safety.Event `json:"events"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
}

func (h *SafetyHandler) handleList(w http.ResponseWriter, r *http.Request) {
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

	filter, err := parseEventFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.events.ListByChild(ctx, childID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, safetyEventsResponse{
		Events: page.Events,
		Total:  page.Total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

func parseEventFilter(r *http.Request) (safety.Filter, error) {
	filter := safety.Filter{Limit: defaultEventPageSize}
	q := r.URL.Query()

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "invalid offset %q", raw)
		}
		filter.Offset = offset
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "invalid limit %q", raw)
		}
		filter.Limit = min(limit, maxEventPageSize)
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "invalid from timestamp %q", raw)
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "invalid to timestamp %q", raw)
		}
		filter.To = &to
	}
	return filter, nil
}
