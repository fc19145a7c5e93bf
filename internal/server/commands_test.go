package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

type fakeApp struct {
	triggerErr error
	triggers   int

	audioErr     error
	input        string
	backend      string
	devices      []audio.Device
	deviceErr    error
	devicesAsked string
}

func (a *fakeApp) Trigger() error {
	a.triggers++
	return a.triggerErr
}

func (a *fakeApp) UpdateAudio(input, backend string) error {
	a.input, a.backend = input, backend
	return a.audioErr
}

func (a *fakeApp) Devices(_ context.Context, backend string) ([]audio.Device, error) {
	a.devicesAsked = backend
	return a.devices, a.deviceErr
}

func (a *fakeApp) Config() any {
	return map[string]string{"provider": "google"}
}

func handle(t *testing.T, app App, cmdType, data string) (any, int) {
	t.Helper()
	send := make(chan any, 4)
	updates := 0
	cmd := WSCommand{Type: cmdType}
	if data != "" {
		cmd.Data = json.RawMessage(data)
	}
	NewCommandHandler(app).Handle(cmd, send, func() { updates++ })
	select {
	case msg := <-send:
		return msg, updates
	default:
		return nil, updates
	}
}

func TestListenStart(t *testing.T) {
	app := &fakeApp{}
	msg, updates := handle(t, app, "listen/start", "")

	res, ok := msg.(types.WSCommandResult)
	require.True(t, ok)
	assert.Equal(t, "listen/start_result", res.Type)
	assert.True(t, res.Success)
	assert.Equal(t, 1, app.triggers)
	assert.Equal(t, 1, updates)
}

func TestListenStartBusy(t *testing.T) {
	app := &fakeApp{triggerErr: errors.New("a listen cycle is already running")}
	msg, _ := handle(t, app, "listen/start", "")

	res := msg.(types.WSCommandResult)
	assert.False(t, res.Success)
	assert.Equal(t, "a listen cycle is already running", res.Message)
}

func TestAudioUpdate(t *testing.T) {
	app := &fakeApp{}
	msg, _ := handle(t, app, "audio/update", `{"input":"plughw:1,0","backend":"malgo"}`)

	res := msg.(types.WSCommandResult)
	assert.True(t, res.Success)
	assert.Equal(t, "plughw:1,0", app.input)
	assert.Equal(t, "malgo", app.backend)
}

func TestAudioUpdateValidation(t *testing.T) {
	app := &fakeApp{}
	msg, _ := handle(t, app, "audio/update", `{"input":"hw:0","backend":"pulse"}`)

	res := msg.(types.WSCommandResult)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Len(t, res.Error.Errors, 1)
	assert.Equal(t, "backend", res.Error.Errors[0].Field)
	assert.Equal(t, "must be one of: exec malgo", res.Error.Errors[0].Message)
	assert.Empty(t, app.input)
}

func TestAudioUpdateInvalidJSON(t *testing.T) {
	msg, _ := handle(t, &fakeApp{}, "audio/update", `{"input":`)

	res := msg.(types.WSCommandResult)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "invalid JSON")
}

func TestDevicesList(t *testing.T) {
	app := &fakeApp{devices: []audio.Device{{ID: "default", Name: "Default"}}}
	msg, _ := handle(t, app, "devices/list", `{"backend":"exec"}`)

	res := msg.(types.WSCommandResult)
	assert.True(t, res.Success)
	assert.Equal(t, app.devices, res.Data)
	assert.Equal(t, "exec", app.devicesAsked)
}

func TestDevicesListEmpty(t *testing.T) {
	msg, _ := handle(t, &fakeApp{}, "devices/list", "")

	res := msg.(types.WSCommandResult)
	assert.True(t, res.Success)
	assert.Equal(t, []audio.Device{}, res.Data)
}

func TestConfigGet(t *testing.T) {
	msg, _ := handle(t, &fakeApp{}, "config/get", "")

	res, ok := msg.(types.WSConfigResponse)
	require.True(t, ok)
	assert.Equal(t, "config", res.Type)
	assert.Equal(t, map[string]string{"provider": "google"}, res.Config)
}

func TestStatusGetOnlyTriggersUpdate(t *testing.T) {
	msg, updates := handle(t, &fakeApp{}, "status/get", "")
	assert.Nil(t, msg)
	assert.Equal(t, 1, updates)
}

func TestUnknownCommand(t *testing.T) {
	msg, updates := handle(t, &fakeApp{}, "outputs/add", `{}`)
	assert.Nil(t, msg)
	assert.Equal(t, 1, updates)
}
