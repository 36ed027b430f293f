package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"giftmatch/internal/core"
	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/internal/storage"
	"giftmatch/pkg"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const moderationTextID = "moderation-denial-text"

// handleChat runs one conversational turn and streams the reply unless ?stream=false.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, errInvalidBody, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	history, prior, err := s.chatHistory(ctx, req)
	if err != nil {
		logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Failed to load session")
		jsonError(w, errSomethingWrong, http.StatusInternalServerError)
		return
	}
	if !hasUserMessage(history) {
		jsonError(w, errMessagesRequired, http.StatusBadRequest)
		return
	}

	out, err := s.deps.Processor.Execute(ctx, core.ProcessorInput{
		SessionID:    req.SessionID,
		Messages:     history,
		PriorContext: prior,
	})
	if err != nil {
		metrics.ChatTurn(metrics.OutcomeError)
		logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Chat turn failed")
		jsonError(w, errSomethingWrong, http.StatusInternalServerError)
		return
	}
	metrics.ChatTurn(turnOutcome(out))

	if r.URL.Query().Get("stream") == "false" {
		s.respondChatJSON(ctx, w, req, history, out)
		return
	}
	s.streamChat(ctx, w, req, history, out)
}

func (s *Server) respondChatJSON(ctx context.Context, w http.ResponseWriter, req pkg.ChatRequest, history []pkg.ConversationMessage, out *core.ProcessorOutput) {
	text := out.Response
	if !out.Moderated {
		var err error
		text, err = s.deps.Responder.Generate(ctx, out.SystemPrompt, history)
		if err != nil {
			logger.Error().Err(err).Msg("Chat reply generation failed")
			jsonError(w, errSomethingWrong, http.StatusInternalServerError)
			return
		}
	}

	s.recordTurn(ctx, req, out.GiftContext, text)
	writeJSON(w, http.StatusOK, pkg.ChatResponse{
		SessionID:    req.SessionID,
		Text:         text,
		Moderated:    out.Moderated,
		Context:      out.GiftContext,
		Ready:        out.Ready,
		MatchedGifts: out.MatchedGifts,
	})
}

func (s *Server) streamChat(ctx context.Context, w http.ResponseWriter, req pkg.ChatRequest, history []pkg.ConversationMessage, out *core.ProcessorOutput) {
	stream, err := newEventStream(w)
	if err != nil {
		jsonError(w, errSomethingWrong, http.StatusInternalServerError)
		return
	}

	textID := moderationTextID
	if !out.Moderated {
		textID = uuid.NewString()
	}
	if err := stream.start(textID); err != nil {
		return
	}

	text := out.Response
	if out.Moderated {
		if err := stream.delta(textID, text); err != nil {
			return
		}
	} else {
		text, err = s.deps.Responder.Stream(ctx, out.SystemPrompt, history, func(delta string) error {
			return stream.delta(textID, delta)
		})
		if err != nil {
			logger.Error().Err(err).Msg("Chat reply stream failed")
			stream.fail(errSomethingWrong)
			return
		}
	}

	s.recordTurn(ctx, req, out.GiftContext, text)
	stream.finish(textID)
}

// chatHistory returns the stored session plus the new message in session mode, otherwise the
// posted history. In session mode the stored context is returned as the prior context, since
// the stored history may be trimmed.
func (s *Server) chatHistory(ctx context.Context, req pkg.ChatRequest) ([]pkg.ConversationMessage, *pkg.GiftContext, error) {
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		return req.Messages, nil, nil
	}

	var history []pkg.ConversationMessage
	prior := &pkg.GiftContext{}
	session, err := s.deps.Sessions.GetSession(ctx, req.SessionID)
	switch {
	case err == nil:
		history = session.Messages
		prior = &session.Context
	case errors.Is(err, storage.ErrSessionNotFound):
	default:
		return nil, nil, err
	}
	return append(history, pkg.ConversationMessage{Role: pkg.RoleUser, Content: req.Message}), prior, nil
}

// recordTurn stores the user message, the reply and the updated context in session mode.
// Failures are logged only.
func (s *Server) recordTurn(ctx context.Context, req pkg.ChatRequest, giftCtx pkg.GiftContext, reply string) {
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		return
	}
	_, err := s.deps.Sessions.AppendTurn(ctx, req.SessionID, giftCtx,
		pkg.ConversationMessage{Role: pkg.RoleUser, Content: req.Message},
		pkg.ConversationMessage{Role: pkg.RoleAssistant, Content: reply},
	)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("Failed to save session")
	}
}

// handleResetSession discards the stored history of a session
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.deps.Sessions.DeleteSession(r.Context(), sessionID); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to reset session")
		jsonError(w, errSomethingWrong, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func hasUserMessage(history []pkg.ConversationMessage) bool {
	for _, msg := range history {
		if msg.Role == pkg.RoleUser && strings.TrimSpace(msg.Content) != "" {
			return true
		}
	}
	return false
}

func turnOutcome(out *core.ProcessorOutput) string {
	switch {
	case out.Moderated:
		return metrics.OutcomeModerated
	case out.Recommendation != "":
		return metrics.OutcomeRecommend
	default:
		return metrics.OutcomeClarify
	}
}
