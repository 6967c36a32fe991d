// FilePath: internal/remote/postgres/postgres.service.go
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/database"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

// Service is a remote.DataService talking straight to the feeder database.
// Change subscriptions ride on LISTEN/NOTIFY.
type Service struct {
	db       database.DB
	notifier *Notifier
}

// NewService wraps db. A nil notifier disables Subscribe.
func NewService(db database.DB, notifier *Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

func (s *Service) Query(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.GetDB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	var out []remote.Row
	for rows.Next() {
		m := make(map[string]interface{})
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		out = append(out, normalizeRow(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	return out, nil
}

func (s *Service) Insert(ctx context.Context, table string, row remote.Row) error {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return err
	}
	if _, err := s.db.GetDB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *Service) Subscribe(_ context.Context, spec remote.ChangeSpec, handler remote.ChangeHandler) (remote.Subscription, error) {
	if s.notifier == nil {
		return nil, fmt.Errorf("change notifications are disabled")
	}
	if spec.Filter != nil && spec.Filter.Op != remote.OpEq {
		return nil, fmt.Errorf("subscription filter must be an equality, got %s", spec.Filter.Op)
	}
	return s.notifier.add(spec, handler), nil
}

func (s *Service) Close() error {
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			nuts.L.Warnf("[PostgresRemote] Closing notifier: %v", err)
		}
	}
	return s.db.Close()
}

// normalizeRow turns driver byte slices (numeric, text) into strings.
func normalizeRow(m map[string]interface{}) remote.Row {
	row := make(remote.Row, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}

func buildSelect(q remote.Query) (string, []interface{}, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("query without table")
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, pq.QuoteIdentifier(q.Table))

	args := make([]interface{}, 0, len(q.Filters))
	for i, f := range q.Filters {
		var op string
		switch f.Op {
		case remote.OpEq:
			op = "="
		case remote.OpGte:
			op = ">="
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s %s $%d", pq.QuoteIdentifier(f.Column), op, len(args))
	}

	if q.Order != nil {
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", pq.QuoteIdentifier(q.Order.Column), dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

func buildInsert(table string, row remote.Row) (string, []interface{}, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("insert into %s without columns", table)
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	params := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		cols[i] = pq.QuoteIdentifier(k)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[k]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(params, ", "))
	return query, args, nil
}
