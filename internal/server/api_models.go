package server

import (
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/model"
)

// CreateSessionRequest creates an Eddy for the page at URL.
type CreateSessionRequest struct {
	Name string `json:"name" example:"Dark header"`
	URL  string `json:"url" example:"https://example.com/docs"`
}

// RenameSessionRequest renames an Eddy.
type RenameSessionRequest struct {
	Name string `json:"name" example:"Dark header v2"`
}

// ApplyRequest carries one modification batch. Token is optional; when set
// it must be the latest token issued for the session.
type ApplyRequest struct {
	UserQuery     string               `json:"userQuery" example:"make the header dark"`
	Modifications []model.Modification `json:"modifications"`
	Token         uint64               `json:"token,omitempty" example:"3"`
}

// TokenResponse returns a freshly issued apply token.
type TokenResponse struct {
	Token uint64 `json:"token" example:"3"`
}

// MutationResponse reports a history mutation. Error is set when the
// mutation went through but a script or the save failed.
type MutationResponse struct {
	engine.Outcome
	Error string `json:"error,omitempty"`
}

// CSSResponse is the stylesheet of the effective snapshot.
type CSSResponse struct {
	CSS string `json:"css" example:"body {\n  color: red;\n}\n"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
