package resources

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// FeedingHandlers encapsulates the feeding-related HTTP handlers
type FeedingHandlers struct {
	hubservice *hubservice.FeederService
}

// FeedResponse acknowledges a sent feed command.
type FeedResponse struct {
	Status   string `json:"status"`
	Portions int    `json:"portions"`
}

// @Summary List feeding history
// @Description Latest feeding events with the portions they add up to
// @Tags feedings
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Success 200 {object} models.FeedingHistory
// @Failure 502 {object} errors.APIError
// @Router /feedings [get]
// @Security BearerAuth
func (h *FeedingHandlers) ListFeedings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	params, apiErr := decodeListParams(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	history, err := h.hubservice.FeedingHistory(r.Context(), params.Limit)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list feedings").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

// @Summary Today's portions
// @Tags feedings
// @Produce json
// @Success 200 {object} models.FeedingTally
// @Router /feedings/today [get]
// @Security BearerAuth
func (h *FeedingHandlers) GetToday(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	tally, err := h.hubservice.Today(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to get today's feedings").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, tally)
}

// @Summary Recount today's portions
// @Description Forces a recompute outside the poll cadence
// @Tags feedings
// @Produce json
// @Success 200 {object} models.FeedingTally
// @Router /feedings/today/refresh [post]
// @Security BearerAuth
func (h *FeedingHandlers) RefreshToday(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	tally, err := h.hubservice.RefreshToday(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to refresh today's feedings").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, tally)
}

// @Summary Dispense food
// @Description Sends a manual feed command. The body is optional and defaults to one portion.
// @Tags feedings
// @Accept json
// @Produce json
// @Param command body models.FeedCommand false "Portions to dispense"
// @Success 202 {object} FeedResponse
// @Failure 400 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /feed [post]
// @Security BearerAuth
func (h *FeedingHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var cmd models.FeedCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && err != io.EOF {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if cmd.Portions == 0 {
		cmd.Portions = 1
	}

	if err := h.hubservice.Feed(r.Context(), cmd.Portions); err != nil {
		respondWithError(w, toAPIError(err, "failed to send feed command").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusAccepted, FeedResponse{Status: "sent", Portions: cmd.Portions})
}
