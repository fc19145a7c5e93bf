package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

// deviceListTimeout bounds a devices/list command.
const deviceListTimeout = 10 * time.Second

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// App is the part of the application that WebSocket commands drive.
type App interface {
	// Trigger starts a listen cycle without waiting for it.
	Trigger() error
	// UpdateAudio switches the input device and capture backend.
	// An empty backend keeps the current one.
	UpdateAudio(input, backend string) error
	// Devices lists capture devices for backend, or the current backend if empty.
	Devices(ctx context.Context, backend string) ([]audio.Device, error)
	// Config returns the configuration with secrets redacted.
	Config() any
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	app App
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(app App) *CommandHandler {
	return &CommandHandler{app: app}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g. "listen/start").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	namespace, action, _ := strings.Cut(cmd.Type, "/")

	switch namespace {
	case "listen":
		h.handleListen(action, cmd, send)
	case "audio":
		h.handleAudio(action, cmd, send)
	case "devices":
		h.handleDevices(action, cmd, send)
	case "config":
		h.handleConfig(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// handleListen routes listen/* commands
func (h *CommandHandler) handleListen(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		HandleCommand(cmd, send, func(*emptyRequest) (any, error) {
			return nil, h.app.Trigger()
		})
	default:
		slog.Warn("unknown listen action", "action", action)
	}
}

// handleAudio routes audio/* commands
func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *AudioUpdateRequest) (any, error) {
			if err := h.app.UpdateAudio(req.Input, req.Backend); err != nil {
				return nil, err
			}
			slog.Info("audio input updated", "input", req.Input, "backend", req.Backend)
			return nil, nil
		})
	default:
		slog.Warn("unknown audio action", "action", action)
	}
}

// handleDevices routes devices/* commands
func (h *CommandHandler) handleDevices(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "list":
		HandleCommand(cmd, send, func(req *DevicesListRequest) (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), deviceListTimeout)
			defer cancel()
			devices, err := h.app.Devices(ctx, req.Backend)
			if err != nil {
				return nil, err
			}
			if devices == nil {
				devices = []audio.Device{}
			}
			return devices, nil
		})
	default:
		slog.Warn("unknown devices action", "action", action)
	}
}

// handleConfig routes config/* commands
func (h *CommandHandler) handleConfig(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		trySend(send, cmd.Type, types.WSConfigResponse{Type: "config", Config: h.app.Config()})
	default:
		slog.Warn("unknown config action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// The status push follows every command.
		slog.Debug("status/get received")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
