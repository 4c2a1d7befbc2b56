// Package apidocs registers the OpenAPI document served by the swagger UI.
// Keep in sync with the handler annotations in internal/httpapi.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "asrd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Liveness with slot status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}
            }
        },
        "/api/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Slot status, GPU telemetry and catalog",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ServiceStatusResponse"}}}
            }
        },
        "/api/languages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Supported languages and dialects",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LanguagesResponse"}}}
            }
        },
        "/api/gpu-offload": {
            "post": {
                "produces": ["application/json"],
                "tags": ["slot"],
                "summary": "Evict the loaded model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OffloadResponse"}}}
            }
        },
        "/api/transcribe": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["transcribe"],
                "summary": "Transcribe an audio file",
                "parameters": [
                    {"type": "file", "description": "Audio file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Language hint or auto", "name": "language", "in": "formData"},
                    {"type": "string", "description": "Model id", "name": "model", "in": "formData"},
                    {"type": "boolean", "description": "Include timestamps", "name": "return_timestamps", "in": "formData"},
                    {"type": "string", "description": "bf16 or fp16", "name": "dtype", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TranscribeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/transcribe/stream": {
            "get": {
                "description": "WebSocket. Send a JSON config, wait for ready, then binary int16 PCM frames; an empty frame or {\"type\":\"end\"} yields the final result.",
                "tags": ["transcribe"],
                "summary": "Stream PCM audio for incremental transcription",
                "parameters": [
                    {"description": "First message", "name": "config", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.StreamConfig"}}
                ],
                "responses": {"101": {"description": "Switching Protocols", "schema": {"$ref": "#/definitions/types.StreamMessage"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "file too large (max 200MB)"},
                "code": {"type": "integer", "example": 413}
            }
        },
        "types.GPUInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 0},
                "name": {"type": "string", "example": "NVIDIA GeForce RTX 4090"},
                "memory_used_mb": {"type": "integer", "example": 5120},
                "memory_total_mb": {"type": "integer", "example": 24564},
                "utilization_percent": {"type": "integer", "example": 12},
                "temperature_c": {"type": "integer", "example": 48}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "model_loaded": {"type": "string", "example": "Qwen3-ASR-1.7B"},
                "precision": {"type": "string", "example": "bf16"},
                "idle_seconds": {"type": "integer", "example": 42},
                "idle_timeout": {"type": "integer", "example": 600},
                "state": {"type": "string", "example": "ready"},
                "loading_model": {"type": "string"},
                "last_error": {"type": "string"},
                "loads_total": {"type": "integer", "example": 3},
                "evictions_total": {"type": "integer", "example": 2},
                "cache_hits_total": {"type": "integer", "example": 120},
                "uptime_seconds": {"type": "integer", "example": 3600},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "gpu": {"$ref": "#/definitions/types.GPUInfo"}
            }
        },
        "types.HealthResponse": {
            "allOf": [
                {"$ref": "#/definitions/types.StatusResponse"},
                {"type": "object", "properties": {
                    "status": {"type": "string", "example": "healthy"},
                    "version": {"type": "string", "example": "1.0.0"}
                }}
            ]
        },
        "types.ServiceStatusResponse": {
            "allOf": [
                {"$ref": "#/definitions/types.StatusResponse"},
                {"type": "object", "properties": {
                    "supported_languages": {"type": "array", "items": {"type": "string"}},
                    "dialects": {"type": "array", "items": {"type": "string"}},
                    "available_models": {"type": "array", "items": {"type": "string"}}
                }}
            ]
        },
        "types.LanguagesResponse": {
            "type": "object",
            "properties": {
                "languages": {"type": "array", "items": {"type": "string"}},
                "dialects": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.OffloadResponse": {
            "allOf": [
                {"$ref": "#/definitions/types.StatusResponse"},
                {"type": "object", "properties": {
                    "status": {"type": "string", "example": "offloaded"},
                    "evicted": {"type": "boolean", "example": true}
                }}
            ]
        },
        "types.Timestamp": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "hello"},
                "start": {"type": "number", "example": 0.12},
                "end": {"type": "number", "example": 0.48}
            }
        },
        "types.TranscribeResponse": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "hello world"},
                "language": {"type": "string", "example": "English"},
                "duration_seconds": {"type": "number", "example": 3.52},
                "process_time_seconds": {"type": "number", "example": 0.41},
                "rtf": {"type": "number", "example": 0.1165},
                "timestamps": {"type": "array", "items": {"$ref": "#/definitions/types.Timestamp"}}
            }
        },
        "types.StreamConfig": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "Qwen3-ASR-1.7B"},
                "dtype": {"type": "string", "example": "bf16"},
                "language": {"type": "string", "example": "English"}
            }
        },
        "types.StreamMessage": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["ready", "partial", "final", "error"]},
                "text": {"type": "string"},
                "language": {"type": "string"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "asrd API",
	Description:      "Speech recognition over a single GPU model slot with idle offload.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
