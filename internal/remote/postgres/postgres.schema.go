// FilePath: internal/remote/postgres/postgres.schema.go
package postgres

import (
	"context"
	"fmt"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/database"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

const notifyFunction = "feeder_notify_change"

// notifyTriggers lists the tables and events that publish changes.
var notifyTriggers = []struct {
	table  string
	events string
}{
	{remote.TableSensorStates, "INSERT OR UPDATE"},
	{remote.TableFeedingEvents, "INSERT"},
}

// EnsureNotifyTriggers installs the trigger function publishing row changes
// on channel, and attaches it to the synchronized tables.
func EnsureNotifyTriggers(ctx context.Context, db database.DB, channel string) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}

	for _, query := range notifySchema(channel) {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			_ = tx.Rollback()
			return errors.NewDatabaseError("failed to install change notifications", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit change notifications", err)
	}
	nuts.L.Infof("[PostgresRemote] Change notifications installed on channel %q", channel)
	return nil
}

func notifySchema(channel string) []string {
	queries := []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(%s, json_build_object(
				'table', TG_TABLE_NAME,
				'type', TG_OP,
				'record', row_to_json(NEW)
			)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`, notifyFunction, pq.QuoteLiteral(channel)),
	}

	for _, t := range notifyTriggers {
		trigger := pq.QuoteIdentifier(t.table + "_notify")
		table := pq.QuoteIdentifier(t.table)
		queries = append(queries,
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, table),
			fmt.Sprintf(`CREATE TRIGGER %s AFTER %s ON %s FOR EACH ROW EXECUTE FUNCTION %s()`,
				trigger, t.events, table, notifyFunction),
		)
	}
	return queries
}
