// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Sensors     *SensorHandlers
	Feedings    *FeedingHandlers
	Live        *LiveHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.FeederService, allowedOrigins []string) *Resources {
	return &Resources{
		Sensors:  &SensorHandlers{hubservice: svc},
		Feedings: &FeedingHandlers{hubservice: svc},
		Live:     NewLiveHandlers(svc, allowedOrigins),
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}
