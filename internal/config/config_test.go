package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadFromEnvironment(t *testing.T) {
	c := qt.New(t)
	t.Setenv("FEEDER_BACKEND__SUPABASE__URL", "https://ref.supabase.co")
	t.Setenv("FEEDER_BACKEND__SUPABASE__KEY", "publishable")
	t.Setenv("FEEDER_SYNC__TIMEZONE", "UTC")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Backend.Driver, qt.Equals, DriverSupabase)
	c.Assert(cfg.Backend.Supabase.URL, qt.Equals, "https://ref.supabase.co")
	c.Assert(cfg.Backend.Supabase.Key, qt.Equals, "publishable")
	c.Assert(cfg.Sync.SensorPollInterval, qt.Equals, 8*time.Second)
	c.Assert(cfg.Sync.FeedingPollInterval, qt.Equals, 5*time.Second)
	c.Assert(cfg.Sync.RejectStaleReadings, qt.IsTrue)
	c.Assert(cfg.Sync.MotionProfile, qt.Equals, MotionProfileLastMotion)
	c.Assert(cfg.Sync.FoodEmptyCM, qt.Equals, 25.0)
	c.Assert(cfg.Sync.FoodFullCM, qt.Equals, 4.0)
	c.Assert(cfg.Redis.Enabled(), qt.IsFalse)
	c.Assert(cfg.Keycloak.Enabled(), qt.IsFalse)
}

func TestValidateRejectsMissingBackend(t *testing.T) {
	c := qt.New(t)

	_, err := unmarshal(newTestViper())
	c.Assert(err, qt.ErrorMatches, "config validation error: supabase url is required")

	v := newTestViper()
	v.Set("backend.driver", DriverPostgres)
	_, err = unmarshal(v)
	c.Assert(err, qt.ErrorMatches, "config validation error: postgres host is required")

	v = newTestViper()
	v.Set("backend.driver", "sqlite")
	_, err = unmarshal(v)
	c.Assert(err, qt.ErrorMatches, `config validation error: unknown backend driver "sqlite"`)
}

func TestValidateSyncSettings(t *testing.T) {
	c := qt.New(t)

	v := newTestViper()
	v.Set("backend.driver", DriverPostgres)
	v.Set("backend.postgres.host", "db")
	v.Set("sync.motion_profile", "sometimes")
	_, err := unmarshal(v)
	c.Assert(err, qt.ErrorMatches, `config validation error: unknown motion profile "sometimes"`)

	v.Set("sync.motion_profile", MotionProfileUpdatedAtFallback)
	v.Set("sync.timezone", "Mars/Olympus")
	_, err = unmarshal(v)
	c.Assert(err, qt.ErrorMatches, `config validation error: invalid timezone "Mars/Olympus": .*`)

	v.Set("sync.timezone", "Europe/Berlin")
	cfg, err := unmarshal(v)
	c.Assert(err, qt.IsNil)
	loc, err := cfg.Sync.Location()
	c.Assert(err, qt.IsNil)
	c.Assert(loc.String(), qt.Equals, "Europe/Berlin")
	c.Assert(cfg.Backend.Postgres.DSN(), qt.Equals,
		"host=db port=5432 user= password= dbname= sslmode=require")
}
