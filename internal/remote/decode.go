package remote

import (
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// FeedEventFromRow decodes a feeding_events row. Rows without a timestamp
// or with fewer than one portion are rejected.
func FeedEventFromRow(row Row) (models.FeedEvent, bool) {
	at, ok := row.Time(ColumnCreatedAt)
	if !ok {
		return models.FeedEvent{}, false
	}
	portions, ok := row.Int(ColumnPortions)
	if !ok || portions < 1 {
		return models.FeedEvent{}, false
	}
	id, _ := row.Text(ColumnID)
	return models.FeedEvent{ID: id, OccurredAt: at, Portions: portions}, true
}

// FeedEventsFromRows decodes every valid row, skipping the rest.
func FeedEventsFromRows(rows []Row) []models.FeedEvent {
	events := make([]models.FeedEvent, 0, len(rows))
	for _, row := range rows {
		if e, ok := FeedEventFromRow(row); ok {
			events = append(events, e)
		}
	}
	return events
}

// DailyLogFromRow decodes a sensor_daily_log row.
func DailyLogFromRow(row Row) (models.DailySensorLog, bool) {
	sensor, ok := row.Text(ColumnSensor)
	if !ok {
		return models.DailySensorLog{}, false
	}
	kind, err := models.ParseFeedKind(sensor)
	if err != nil {
		return models.DailySensorLog{}, false
	}

	log := models.DailySensorLog{Sensor: kind}
	log.ID, _ = row.Text(ColumnID)
	if d, ok := row.Time(ColumnLogDate); ok {
		log.LogDate = d.Format(time.DateOnly)
	} else {
		log.LogDate, _ = row.Text(ColumnLogDate)
	}
	if v, ok := row.Float(ColumnDistanceCM); ok {
		log.DistanceCM = &v
	}
	if v, ok := row.Float(ColumnWeightGrams); ok {
		log.WeightGrams = &v
	}
	log.MotionCount, _ = row.Int(ColumnMotionCount)
	log.CreatedAt, _ = row.Time(ColumnCreatedAt)
	return log, true
}

// HistoryFromRow decodes a reading-table row. valueColumn may be empty for
// presence-only tables.
func HistoryFromRow(row Row, valueColumn string) (models.HistoryReading, bool) {
	at, ok := row.Time(ColumnCreatedAt)
	if !ok {
		return models.HistoryReading{}, false
	}
	h := models.HistoryReading{CreatedAt: at}
	h.ID, _ = row.Text(ColumnID)
	if valueColumn != "" {
		if v, ok := row.Float(valueColumn); ok {
			h.Value = &v
		}
	}
	return h, true
}
