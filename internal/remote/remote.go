// FilePath: internal/remote/remote.go
package remote

import (
	"context"
	"fmt"
)

// Tables and columns of the hosted feeder schema.
const (
	TableSensorStates      = "sensor_states"
	TableFeedingEvents     = "feeding_events"
	TableFeedCommands      = "feed_commands"
	TableSensorDailyLog    = "sensor_daily_log"
	TableFoodLevelReadings = "food_level_readings"
	TableWeightReadings    = "weight_readings"
	TableMotionEvents      = "motion_events"

	ColumnID           = "id"
	ColumnSensor       = "sensor"
	ColumnDistanceCM   = "distance_cm"
	ColumnWeightGrams  = "weight_grams"
	ColumnLastMotionAt = "last_motion_at"
	ColumnUpdatedAt    = "updated_at"
	ColumnCreatedAt    = "created_at"
	ColumnPortions     = "portions"
	ColumnLogDate      = "log_date"
	ColumnMotionCount  = "motion_count"
)

// Row is a loosely typed result or change record.
type Row map[string]any

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
)

// Filter restricts a query or subscription to rows where Column Op Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Gte builds a greater-or-equal filter.
func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

// Order sorts query results by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query is a point query against one table. Empty Columns selects all
// columns; a zero Limit returns every matching row.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   *Order
	Limit   int
}

// EventKind is the row-level change a subscription listens for.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// ChangeSpec describes a change subscription. Filter, when set, must be an
// equality filter.
type ChangeSpec struct {
	Table  string
	Event  EventKind
	Filter *Filter
}

func (s ChangeSpec) String() string {
	if s.Filter == nil {
		return fmt.Sprintf("%s:%s", s.Table, s.Event)
	}
	return fmt.Sprintf("%s:%s:%s=%s.%v", s.Table, s.Event, s.Filter.Column, s.Filter.Op, s.Filter.Value)
}

// Matches reports whether a change belongs to this subscription.
func (s ChangeSpec) Matches(c Change) bool {
	if c.Table != s.Table || c.Event != s.Event {
		return false
	}
	if s.Filter == nil {
		return true
	}
	v, ok := c.Record[s.Filter.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(s.Filter.Value)
}

// Change is one pushed row-level event.
type Change struct {
	Table  string
	Event  EventKind
	Record Row
}

// ChangeHandler receives pushed changes. Handlers run on the backend's
// delivery goroutine and must not block for long.
type ChangeHandler func(Change)

// Subscription is an open change subscription.
type Subscription interface {
	// Close stops delivery. It is safe to call more than once.
	Close() error
}

// DataService is the remote backend the hub synchronizes with.
type DataService interface {
	Query(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) error
	Subscribe(ctx context.Context, spec ChangeSpec, handler ChangeHandler) (Subscription, error)
	Close() error
}
