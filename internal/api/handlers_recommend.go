package api

import (
	"errors"
	"net/http"

	"giftmatch/internal/gifts"
	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/internal/services"
	"giftmatch/pkg"
)

// recommendationRequest accepts the price band as a band name or its display range
type recommendationRequest struct {
	RecipientGroup string   `json:"recipientGroup"`
	RecipientType  string   `json:"recipientType"`
	Occasion       string   `json:"occasion"`
	PriceBand      string   `json:"priceBand"`
	Personality    string   `json:"personality"`
	Interests      []string `json:"interests"`
}

func (req recommendationRequest) giftContext() pkg.GiftContext {
	band := pkg.PriceBand(req.PriceBand)
	if parsed, ok := pkg.ParsePriceBand(req.PriceBand); ok {
		band = parsed
	}
	if band != "" && !band.Valid() {
		// passed through as-is; the price stage treats it as a soft miss
		logger.Warn().Str("price_band", req.PriceBand).Msg("Unknown price band in recommendation request")
	}
	return pkg.GiftContext{
		RecipientGroup: req.RecipientGroup,
		RecipientType:  req.RecipientType,
		Occasion:       req.Occasion,
		PriceBand:      band,
		Personality:    req.Personality,
		Interests:      req.Interests,
	}
}

// handleRecommendations is the wizard mode: the whole context arrives in one request.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, errRecommendFailed, http.StatusInternalServerError)
		return
	}

	resp, err := s.deps.Wizard.Wizard(r.Context(), req.giftContext())
	switch {
	case errors.Is(err, services.ErrMissingContext):
		metrics.WizardRequest(metrics.OutcomeMissingContext)
		jsonError(w, errMissingContext, http.StatusBadRequest)
	case errors.Is(err, services.ErrNoMatches):
		metrics.WizardRequest(metrics.OutcomeNoMatches)
		jsonError(w, errNoMatches, http.StatusBadRequest)
	case err != nil:
		metrics.WizardRequest(metrics.OutcomeError)
		logger.Error().Err(err).Msg("Recommendation error")
		jsonError(w, errRecommendFailed, http.StatusInternalServerError)
	default:
		metrics.WizardRequest(metrics.OutcomeSuccess)
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleOptions serves the wizard selection tables
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gifts.Options())
}
