package server

// Request types for WebSocket commands, validated with go-playground/validator tags.

// AudioUpdateRequest is the request body for audio/update.
type AudioUpdateRequest struct {
	Input   string `json:"input" validate:"omitempty,max=256,printascii"`
	Backend string `json:"backend" validate:"omitempty,oneof=exec malgo"`
}

// DevicesListRequest is the request body for devices/list.
type DevicesListRequest struct {
	Backend string `json:"backend" validate:"omitempty,oneof=exec malgo"`
}

// emptyRequest is used by commands without a body.
type emptyRequest struct{}
