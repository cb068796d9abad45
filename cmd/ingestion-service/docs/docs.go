// Package docs is generated by swaggo/swag from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Reports service identity. Always 200 and independent of message bus connectivity.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/health.Response"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Runs the registered dependency checks. 503 when any check fails.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/health.Readiness"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/health.Readiness"}}
                }
            }
        },
        "/ingest": {
            "post": {
                "description": "Validates the record, fills a missing id and timestamp, and publishes it to ingest.raw.<content_type>",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Ingest a single record",
                "parameters": [
                    {"description": "Record to ingest", "name": "record", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Record"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.IngestOutcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorBody"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/errors.ErrorBody"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorBody"}}
                }
            }
        },
        "/ingest/batch": {
            "post": {
                "description": "Processes every item independently. Invalid items and items that fail to publish are skipped; the response lists the published ids in input order.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Ingest a batch of records",
                "parameters": [
                    {"description": "Records to ingest", "name": "batch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.BatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.BatchOutcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorBody": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/errors.ErrorDetail"}}
        },
        "errors.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}}
        },
        "health.CheckResult": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "status": {"type": "string"}, "timestamp": {"type": "string"}}
        },
        "health.Readiness": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"$ref": "#/definitions/health.CheckResult"}},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "health.Response": {
            "type": "object",
            "properties": {
                "service": {"type": "string"},
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "models.BatchOutcome": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "ids": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "models.BatchRequest": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/models.Record"}}}
        },
        "models.IngestOutcome": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "status": {"type": "string"}, "timestamp": {"type": "string"}}
        },
        "models.Record": {
            "type": "object",
            "properties": {
                "content_type": {"type": "string"},
                "id": {"type": "string"},
                "metadata": {"type": "object"},
                "payload": {"type": "object"},
                "source": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Ingestion Service API",
	Description:      "Accepts externally sourced records and publishes each to the message bus topic ingest.raw.<content_type>",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
