package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"guardian/internal/chat"
	"guardian/internal/limits"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

// ChatService resolves one child message through the safety pipeline.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Result, error)
}

// ChatHandler serves the conversation endpoint.
type ChatHandler struct {
	chat   ChatService
	logger *slog.Logger
}

func NewChatHandler(chat ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Register registers the chat routes with the chi router.
func (h *ChatHandler) Register(r chi.Router) {
	r.Post("/conversations/chat", h.handleChat)
}

type chatRequest struct {
	ChildID string `json:"child_id"`
	Message string `json:"message"`
	Voice   bool   `json:"voice"`
}

type safetyCheck struct {
	Passed bool     `json:"passed"`
	Score  float64  `json:"score"`
	Action string   `json:"action"`
	Flags  []string `json:"flags,omitempty"`
}

type chatResponse struct {
	ConversationID string      `json:"conversation_id"`
	Response       string      `json:"response"`
	SafetyCheck    safetyCheck `json:"safety_check"`
	Remaining      int         `json:"interactions_remaining"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	childID, err := domain.ParseChildID(req.ChildID)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.chat.Chat(ctx, chat.Request{
		ChildID: childID,
		Message: req.Message,
		Voice:   req.Voice,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "chat request rejected",
			"child_id", childID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, err)
		return
	}

	switch result.Outcome {
	case chat.OutcomeLimited:
		h.writeLimited(w, result.Limit)
	case chat.OutcomeBlocked:
		writeJSON(w, http.StatusForbidden, chatResponse{
			ConversationID: result.ConversationID.String(),
			Response:       result.Reply,
			SafetyCheck: safetyCheck{
				Passed: false,
				Score:  result.Moderation.Score,
				Action: string(result.Moderation.Action),
				Flags:  categoryNames(result),
			},
		})
	default:
		writeJSON(w, http.StatusOK, chatResponse{
			ConversationID: result.ConversationID.String(),
			Response:       result.Reply,
			SafetyCheck: safetyCheck{
				Passed: true,
				Score:  result.Moderation.Score,
				Action: string(result.Moderation.Action),
				Flags:  categoryNames(result),
			},
			Remaining: result.Limit.Remaining,
		})
	}
}

type limitedResponse struct {
	Error             string `json:"error"`
	Reason            string `json:"reason"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

func (h *ChatHandler) writeLimited(w http.ResponseWriter, limit limits.LimitResult) {
	retryAfter := int(limit.RetryAfter.Seconds())
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeJSON(w, http.StatusTooManyRequests, limitedResponse{
		Error:             string(dErrors.CodeQuotaExceeded),
		Reason:            string(limit.Reason),
		RetryAfterSeconds: retryAfter,
	})
}

func categoryNames(result *chat.Result) []string {
	if len(result.Moderation.TriggeredCategories) == 0 {
		return nil
	}
	names := make([]string, len(result.Moderation.TriggeredCategories))
	for i, c := range result.Moderation.TriggeredCategories {
		names[i] = string(c)
	}
	return names
}
