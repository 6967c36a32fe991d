// FilePath: internal/remote/supabase/supabase.service.go
package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

// Service is the hosted backend: PostgREST for reads and writes, Realtime
// for change subscriptions.
type Service struct {
	rest     *restClient
	realtime *Realtime
}

// New builds the hosted backend. The realtime socket connects in the
// background.
func New(cfg config.SupabaseConfig, clk clock.Clock, minDelay, maxDelay time.Duration) (*Service, error) {
	endpoint, err := RealtimeEndpoint(cfg.URL, cfg.Key)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		rest: newRESTClient(cfg.URL, cfg.Key, cfg.Schema, cfg.RequestTimeout),
		realtime: NewRealtime(RealtimeConfig{
			Endpoint:  endpoint,
			Key:       cfg.Key,
			Schema:    cfg.Schema,
			Heartbeat: cfg.HeartbeatInterval,
			MinDelay:  minDelay,
			MaxDelay:  maxDelay,
			Clock:     clk,
		}),
	}
	nuts.L.Infof("[SupabaseRemote] Using %s (schema %s)", cfg.URL, cfg.Schema)
	return svc, nil
}

func (s *Service) Query(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	return s.rest.query(ctx, q)
}

func (s *Service) Insert(ctx context.Context, table string, row remote.Row) error {
	return s.rest.insert(ctx, table, row)
}

func (s *Service) Subscribe(_ context.Context, spec remote.ChangeSpec, handler remote.ChangeHandler) (remote.Subscription, error) {
	if spec.Filter != nil && spec.Filter.Op != remote.OpEq {
		return nil, fmt.Errorf("subscription filter must be an equality, got %s", spec.Filter.Op)
	}
	return s.realtime.Subscribe(spec, handler)
}

func (s *Service) Close() error {
	return s.realtime.Close()
}
