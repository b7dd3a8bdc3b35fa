// Package docs registers the Eddy API description with swag so the
// swagger UI can serve it at /swagger/doc.json. Regenerate with
// `go generate ./internal/server` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Eddy Maintainers",
            "url": "https://github.com/raysh454/eddy"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sessions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "List sessions, most recently updated first",
                "parameters": [
                    {"type": "string", "description": "Page URL or host to filter by", "name": "domain", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Eddy"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Create a session for a page",
                "parameters": [
                    {"description": "Session", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Eddy"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Get a session",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Eddy"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Rename a session",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.RenameSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Eddy"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["sessions"],
                "summary": "Delete a session and clear what it rendered",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/apply": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Apply a modification batch as a new layer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.ApplyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.MutationResponse"}},
                    "400": {"description": "Malformed batch", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "409": {"description": "Busy or superseded", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/apply-token": {
            "post": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Issue an apply token, superseding earlier ones",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.TokenResponse"}}
                }
            }
        },
        "/sessions/{id}/undo": {
            "post": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Move the cursor back one layer",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.MutationResponse"}}}
            }
        },
        "/sessions/{id}/redo": {
            "post": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Move the cursor forward one layer",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.MutationResponse"}}}
            }
        },
        "/sessions/{id}/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Unapply every layer, keeping history",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.MutationResponse"}}}
            }
        },
        "/sessions/{id}/restore": {
            "post": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Reload saved history and render it",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.MutationResponse"}}}
            }
        },
        "/sessions/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List layers and the cursor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/engine.HistoryView"}}}
            }
        },
        "/sessions/{id}/effective": {
            "get": {
                "produces": ["application/json"],
                "tags": ["render"],
                "summary": "Effective snapshot at the cursor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Snapshot"}}}
            }
        },
        "/sessions/{id}/css": {
            "get": {
                "produces": ["application/json"],
                "tags": ["render"],
                "summary": "Stylesheet of the effective snapshot",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.CSSResponse"}}}
            }
        },
        "/sessions/{id}/preview": {
            "get": {
                "produces": ["text/html"],
                "tags": ["render"],
                "summary": "Fetch the page and render the effective snapshot into it",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Page to render; defaults to the session domain", "name": "url", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "502": {"description": "Fetch failed", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/diff": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Compare effective snapshots at two cursor positions",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "from", "in": "query", "required": true},
                    {"type": "integer", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/diff.Result"}},
                    "400": {"description": "Cursor out of range", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.Eddy": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "domain": {"type": "string"},
            "history": {"$ref": "#/definitions/model.HistoryState"},
            "createdAt": {"type": "integer"}, "updatedAt": {"type": "integer"}
        }},
        "model.HistoryState": {"type": "object", "properties": {
            "snapshotArray": {"type": "array", "items": {"$ref": "#/definitions/model.Snapshot"}},
            "currentSnapshotId": {"type": "integer"}
        }},
        "model.Snapshot": {"type": "object", "properties": {
            "id": {"type": "string"},
            "elements": {"type": "array", "items": {"type": "object"}},
            "scripts": {"type": "array", "items": {"type": "object"}},
            "userQuery": {"type": "string"}, "timestamp": {"type": "integer"}
        }},
        "model.Modification": {"type": "object", "properties": {
            "type": {"type": "string", "enum": ["style", "script"]},
            "target": {"type": "string"}, "property": {"type": "string"}, "value": {"type": "string"},
            "code": {"type": "string"},
            "newPlaceholderIds": {"type": "array", "items": {"type": "string"}}
        }},
        "engine.HistoryView": {"type": "object", "properties": {
            "cursor": {"type": "integer"}, "canUndo": {"type": "boolean"}, "canRedo": {"type": "boolean"},
            "entries": {"type": "array", "items": {"type": "object"}}
        }},
        "diff.Result": {"type": "object", "properties": {
            "baseId": {"type": "string"}, "headId": {"type": "string"},
            "chunks": {"type": "array", "items": {"type": "object"}},
            "changes": {"type": "array", "items": {"type": "object"}}
        }},
        "server.CreateSessionRequest": {"type": "object", "properties": {"name": {"type": "string"}, "url": {"type": "string"}}},
        "server.RenameSessionRequest": {"type": "object", "properties": {"name": {"type": "string"}}},
        "server.ApplyRequest": {"type": "object", "properties": {
            "userQuery": {"type": "string"},
            "modifications": {"type": "array", "items": {"$ref": "#/definitions/model.Modification"}},
            "token": {"type": "integer"}
        }},
        "server.TokenResponse": {"type": "object", "properties": {"token": {"type": "integer"}}},
        "server.MutationResponse": {"type": "object", "properties": {
            "changed": {"type": "boolean"}, "cursor": {"type": "integer"},
            "layer": {"$ref": "#/definitions/model.Snapshot"},
            "effective": {"$ref": "#/definitions/model.Snapshot"},
            "scriptFailures": {"type": "array", "items": {"type": "object"}},
            "error": {"type": "string"}
        }},
        "server.CSSResponse": {"type": "object", "properties": {"css": {"type": "string"}}},
        "server.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Eddy API",
	Description:      "Edit sessions over a page: apply modification batches, walk their history, preview the result.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
