package api

import (
	"net/http"

	"giftmatch/internal/logger"
	"giftmatch/pkg"
)

// handleAssistant answers with the tool-calling assistant over the course documents.
func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		jsonError(w, "Assistant is not available", http.StatusServiceUnavailable)
		return
	}

	var req pkg.AssistantRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, errInvalidBody, http.StatusBadRequest)
		return
	}
	if !hasUserMessage(req.Messages) {
		jsonError(w, errMessagesRequired, http.StatusBadRequest)
		return
	}

	resp, err := s.deps.Assistant.Run(r.Context(), req.Messages)
	if err != nil {
		logger.Error().Err(err).Msg("Assistant turn failed")
		jsonError(w, errSomethingWrong, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
