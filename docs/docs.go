// Package docs holds the OpenAPI document of the feeder hub.
package docs

import (
	"net/http"

	"github.com/swaggo/swag"
	nuts "github.com/vaudience/go-nuts"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["system"], "summary": "Service health", "responses": {"200": {"description": "OK"}}}
        },
        "/overview": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "Dashboard overview",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Overview"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/sensors/{feed}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "Get a sensor's latest reading",
                "parameters": [{"type": "string", "description": "Sensor feed (food_level, food, weight, motion)", "name": "feed", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SensorView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/sensors/{feed}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "Get a sensor's reading history",
                "parameters": [
                    {"type": "string", "description": "Sensor feed", "name": "feed", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of readings", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.HistoryReading"}}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/logs/{sensor}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "List daily sensor logs",
                "parameters": [
                    {"type": "string", "description": "Sensor (food, weight, motion)", "name": "sensor", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of days", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DailySensorLog"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/feedings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["feedings"],
                "summary": "List feeding history",
                "parameters": [{"type": "integer", "description": "Maximum number of events", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FeedingHistory"}}}
            }
        },
        "/feedings/today": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["feedings"],
                "summary": "Today's portions",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FeedingTally"}}}
            }
        },
        "/feedings/today/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["feedings"],
                "summary": "Recount today's portions",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FeedingTally"}}}
            }
        },
        "/feed": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["feedings"],
                "summary": "Dispense food",
                "consumes": ["application/json"],
                "parameters": [{"description": "Portions to dispense", "name": "command", "in": "body", "schema": {"$ref": "#/definitions/models.FeedCommand"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/resources.FeedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/live": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "Live overview stream (websocket)",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "errors.APIError": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "message": {"type": "string"},
                "code": {"type": "integer"},
                "request_id": {"type": "string"}
            }
        },
        "models.SensorView": {
            "type": "object",
            "properties": {
                "feed": {"type": "string"},
                "value": {"type": "number"},
                "observed_at": {"type": "string"},
                "unit": {"type": "string"},
                "percent": {"type": "integer"},
                "ago": {"type": "string"}
            }
        },
        "models.Overview": {
            "type": "object",
            "properties": {
                "food_level": {"$ref": "#/definitions/models.SensorView"},
                "weight": {"$ref": "#/definitions/models.SensorView"},
                "motion": {"$ref": "#/definitions/models.SensorView"},
                "feedings_today": {"type": "integer"},
                "has_data": {"type": "boolean"},
                "generated_at": {"type": "string"}
            }
        },
        "models.HistoryReading": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "value": {"type": "number"}
            }
        },
        "models.DailySensorLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "sensor": {"type": "string"},
                "log_date": {"type": "string"},
                "distance_cm": {"type": "number"},
                "weight_grams": {"type": "number"},
                "motion_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "models.FeedEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "portions": {"type": "integer"}
            }
        },
        "models.FeedingHistory": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/models.FeedEvent"}},
                "total_portions": {"type": "integer"}
            }
        },
        "models.FeedingTally": {
            "type": "object",
            "properties": {
                "portions": {"type": "integer"},
                "day_start": {"type": "string"},
                "computed_at": {"type": "string"}
            }
        },
        "models.FeedCommand": {
            "type": "object",
            "properties": {"portions": {"type": "integer"}}
        },
        "resources.FeedResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "portions": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Cat Feeder Hub API",
	Description:      "Live sensor state, feeding history and manual feeding for the cat feeder.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Handler serves the registered document.
func Handler(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		nuts.L.Errorf("[Docs] Reading swagger document failed: %v", err)
		http.Error(w, "swagger document unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
