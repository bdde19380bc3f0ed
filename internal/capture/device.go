package capture

import (
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pcmring/internal/errors"
)

// Mode selects which kind of device a source or listing refers to
type Mode string

const (
	// ModeCapture records from an input device.
	ModeCapture Mode = "capture"
	// ModeLoopback records what an output device is playing. WASAPI only.
	ModeLoopback Mode = "loopback"
	// ModePlayback renders to an output device.
	ModePlayback Mode = "playback"
)

// ParseMode parses a device mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCapture, ModeLoopback, ModePlayback:
		return m, nil
	default:
		return "", errors.Newf("unknown device mode %q", s).
			Component(componentCapture).
			Category(errors.CategoryValidation).
			Context("valid_values", "capture, loopback, playback").
			Build()
	}
}

// DeviceInfo describes an audio endpoint
type DeviceInfo struct {
	Index   int
	Name    string
	ID      string
	Default bool
}

// DeviceType maps a mode to the malgo device type used to open it
func (m Mode) DeviceType() malgo.DeviceType {
	switch m {
	case ModeLoopback:
		return malgo.Loopback
	case ModePlayback:
		return malgo.Playback
	default:
		return malgo.Capture
	}
}

// enumerationType maps a mode to the device list it selects from. Loopback
// opens an output device, so it enumerates playback endpoints.
func (m Mode) enumerationType() malgo.DeviceType {
	if m == ModeCapture {
		return malgo.Capture
	}
	return malgo.Playback
}

// getBackend returns the appropriate malgo backend for the platform and mode
func getBackend(mode Mode) (malgo.Backend, error) {
	if mode == ModeLoopback && runtime.GOOS != "windows" {
		return malgo.BackendNull, errors.Newf("loopback capture is only supported on windows").
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("os", runtime.GOOS).
			Build()
	}

	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system").
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("os", runtime.GOOS).
			Build()
	}
}

// initContext creates a malgo context for mode
func initContext(mode Mode) (*malgo.AllocatedContext, error) {
	backend, err := getBackend(mode)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}
	return ctx, nil
}

// enumerate lists the endpoints of mode on an open context. The returned
// malgo infos are index-aligned with the DeviceInfo slice.
func enumerate(ctx *malgo.AllocatedContext, mode Mode) ([]malgo.DeviceInfo, []DeviceInfo, error) {
	infos, err := ctx.Devices(mode.enumerationType())
	if err != nil {
		return nil, nil, errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Context("mode", string(mode)).
			Build()
	}

	devices := make([]DeviceInfo, len(infos))
	for i := range infos {
		id := infos[i].ID.String()
		if decoded, err := hexToASCII(id); err == nil {
			id = decoded
		}
		devices[i] = DeviceInfo{
			Index:   i,
			Name:    infos[i].Name(),
			ID:      id,
			Default: infos[i].IsDefault == 1,
		}
	}
	return infos, devices, nil
}

// ListDevices returns the endpoints available for mode, skipping the null
// device some backends expose.
func ListDevices(mode Mode) ([]DeviceInfo, error) {
	ctx, err := initContext(mode)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	_, devices, err := enumerate(ctx, mode)
	if err != nil {
		return nil, err
	}

	out := devices[:0]
	for _, d := range devices {
		if strings.Contains(d.Name, "Discard all samples") {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// selectDevice returns the index of the device matching name. An empty name
// or "default" picks the system default, falling back to the first device.
// Otherwise exact name, exact ID and then name substring are tried in order.
func selectDevice(devices []DeviceInfo, name string) (int, error) {
	if name == "" || name == "default" || name == "sysdefault" {
		for i := range devices {
			if devices[i].Default {
				return i, nil
			}
		}
		if len(devices) > 0 {
			return 0, nil
		}
	}

	for i := range devices {
		if devices[i].Name == name {
			return i, nil
		}
	}
	for i := range devices {
		if devices[i].ID == name {
			return i, nil
		}
	}
	for i := range devices {
		if strings.Contains(devices[i].Name, name) {
			return i, nil
		}
	}

	return -1, errors.New(ErrNoDevice).
		Component(componentCapture).
		Category(errors.CategoryNotFound).
		Context("device_name", name).
		Context("available_devices", len(devices)).
		Build()
}

// hexToASCII converts a hexadecimal string to an ASCII string
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

// OpenDevice initializes a malgo context and resolves the device called
// name. The caller owns the returned context.
func OpenDevice(mode Mode, name string) (*malgo.AllocatedContext, *malgo.DeviceInfo, error) {
	ctx, err := initContext(mode)
	if err != nil {
		return nil, nil, err
	}

	infos, devices, err := enumerate(ctx, mode)
	if err == nil {
		var idx int
		if idx, err = selectDevice(devices, name); err == nil {
			return ctx, &infos[idx], nil
		}
	}

	_ = ctx.Uninit()
	ctx.Free()
	return nil, nil, err
}

// MalgoFormat maps a bit depth to the matching integer sample format
func MalgoFormat(bitDepth int) (malgo.FormatType, error) {
	switch bitDepth {
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, errors.Newf("unsupported bit depth %d", bitDepth).
			Component(componentCapture).
			Category(errors.CategoryValidation).
			Context("bit_depth", bitDepth).
			Build()
	}
}
