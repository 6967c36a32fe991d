// FilePath: api/resources/api.resource.helpers.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// listParams are the query parameters of the list endpoints.
type listParams struct {
	Limit int `schema:"limit"`
}

func decodeListParams(r *http.Request) (listParams, *errors.APIError) {
	var p listParams
	if err := queryDecoder.Decode(&p, r.URL.Query()); err != nil {
		return p, errors.NewValidationError("invalid query parameters", err)
	}
	if p.Limit < 0 {
		return p, errors.NewValidationError("limit must not be negative", nil)
	}
	return p, nil
}

// toAPIError keeps typed errors and wraps anything else as internal.
func toAPIError(err error, fallback string) *errors.APIError {
	if apiErr, ok := errors.As(err); ok {
		return apiErr
	}
	return errors.NewInternalError(fallback, err)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	if err.Code >= http.StatusInternalServerError {
		nuts.L.Errorf("[API] %s", err.Error())
	} else {
		nuts.L.Debugf("[API] %s", err.Error())
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
