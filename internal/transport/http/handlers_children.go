package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

// ChildrenService registers and lists child profiles.
type ChildrenService interface {
	Register(ctx context.Context, profile *domain.ChildProfile) error
	ListByParent(ctx context.Context, parentID domain.ParentID) ([]*domain.ChildProfile, error)
}

// ChildrenHandler serves child profile management for authenticated parents.
type ChildrenHandler struct {
	children ChildrenService
	logger   *slog.Logger
}

func NewChildrenHandler(children ChildrenService, logger *slog.Logger) *ChildrenHandler {
	return &ChildrenHandler{children: children, logger: logger}
}

// Register registers the profile routes with the chi router.
func (h *ChildrenHandler) Register(r chi.Router) {
	r.Post("/children", h.handleRegister)
	r.Get("/children", h.handleList)
}

type registerChildRequest struct {
	Age         int    `json:"age"`
	SafetyLevel string `json:"safety_level"`
	Language    string `json:"language"`
}

func (h *ChildrenHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	var req registerChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	level := domain.SafetyStrict
	if req.SafetyLevel != "" {
		parsed, err := domain.ParseSafetyLevel(req.SafetyLevel)
		if err != nil {
			writeError(w, err)
			return
		}
		level = parsed
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	profile := &domain.ChildProfile{
		ID:          domain.NewChildID(),
		ParentID:    parentID,
		Age:         req.Age,
		SafetyLevel: level,
		Language:    language,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.children.Register(ctx, profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *ChildrenHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)

	profiles, err := h.children.ListByParent(ctx, parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*domain.ChildProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}
