package resources

import (
	"net/http"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// SensorHandlers encapsulates the sensor-related HTTP handlers
type SensorHandlers struct {
	hubservice *hubservice.FeederService
}

// @Summary Dashboard overview
// @Description Latest food level, weight and motion plus today's portions
// @Tags sensors
// @Produce json
// @Success 200 {object} models.Overview
// @Failure 503 {object} errors.APIError
// @Router /overview [get]
// @Security BearerAuth
func (h *SensorHandlers) GetOverview(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	overview, err := h.hubservice.Overview(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to build overview").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, overview)
}

// @Summary Get a sensor's latest reading
// @Tags sensors
// @Produce json
// @Param feed path string true "Sensor feed (food_level, food, weight, motion)"
// @Success 200 {object} models.SensorView
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /sensors/{feed} [get]
// @Security BearerAuth
func (h *SensorHandlers) GetSensor(w http.ResponseWriter, r *http.Request) {
	feed := mux.Vars(r)["feed"]
	requestID := nuts.NID("req", 12)

	view, err := h.hubservice.Sensor(r.Context(), feed)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to get sensor").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// @Summary Get a sensor's reading history
// @Description Raw readings, newest first
// @Tags sensors
// @Produce json
// @Param feed path string true "Sensor feed"
// @Param limit query int false "Maximum number of readings"
// @Success 200 {array} models.HistoryReading
// @Failure 400 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /sensors/{feed}/history [get]
// @Security BearerAuth
func (h *SensorHandlers) GetSensorHistory(w http.ResponseWriter, r *http.Request) {
	feed := mux.Vars(r)["feed"]
	requestID := nuts.NID("req", 12)

	params, apiErr := decodeListParams(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	readings, err := h.hubservice.ReadingHistory(r.Context(), feed, params.Limit)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to get sensor history").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary List daily sensor logs
// @Tags sensors
// @Produce json
// @Param sensor path string true "Sensor (food, weight, motion)"
// @Param limit query int false "Maximum number of days"
// @Success 200 {array} models.DailySensorLog
// @Failure 400 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /logs/{sensor} [get]
// @Security BearerAuth
func (h *SensorHandlers) ListDailyLogs(w http.ResponseWriter, r *http.Request) {
	sensor := mux.Vars(r)["sensor"]
	requestID := nuts.NID("req", 12)

	params, apiErr := decodeListParams(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	logs, err := h.hubservice.SensorLogs(r.Context(), sensor, params.Limit)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list daily logs").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}
