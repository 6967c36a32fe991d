package feeds

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	nuts "github.com/vaudience/go-nuts"
)

const (
	EventFeedCommandSent   = "feed.command.sent"
	EventFeedCommandFailed = "feed.command.failed"
)

// Trigger sends manual feed commands. It never retries and never touches
// the counter: the appliance's resulting feeding event arrives through the
// counter's own push and poll path.
type Trigger struct {
	svc    remote.DataService
	events *nuts.EventEmitter
}

// NewTrigger creates a trigger. events may be nil.
func NewTrigger(svc remote.DataService, events *nuts.EventEmitter) *Trigger {
	return &Trigger{svc: svc, events: events}
}

// Feed requests portions to be dispensed. Zero means one portion.
func (t *Trigger) Feed(ctx context.Context, portions int) error {
	if portions == 0 {
		portions = 1
	}
	if portions < 1 {
		return errors.NewValidationError("portions must be at least 1", nil)
	}

	cmd := models.FeedCommand{Portions: portions}
	if err := t.svc.Insert(ctx, remote.TableFeedCommands, remote.Row{remote.ColumnPortions: cmd.Portions}); err != nil {
		nuts.L.Errorf("[FeedTrigger] Sending feed command (%d portion(s)) failed: %v", portions, err)
		t.emit(EventFeedCommandFailed, cmd)
		return errors.NewUpstreamError("failed to send feed command", err)
	}

	nuts.L.Infof("[FeedTrigger] Feed command sent: %d portion(s)", portions)
	t.emit(EventFeedCommandSent, cmd)
	return nil
}

func (t *Trigger) emit(event string, cmd models.FeedCommand) {
	if t.events != nil {
		t.events.Emit(event, cmd)
	}
}
