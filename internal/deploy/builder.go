package deploy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Transport methods.
const (
	MethodMango = "mango"
	MethodUSB   = "usb"
)

// Defaults used when no configuration overrides them.
const (
	DefaultTunnelEndpoint = "rfc2217://192.168.14.1:5000"
	DefaultLocalDevice    = "/dev/ttyUSB0"
	DefaultTool           = "iot exec deploy serial"
)

// ErrUnsupportedTransport is returned for unknown transport methods.
var ErrUnsupportedTransport = errors.New("unsupported transport method")

var localDevicePattern = regexp.MustCompile(`^(/dev/[A-Za-z0-9._/-]+|COM[0-9]+)$`)

// Command is a ready-to-run deployment command.
type Command struct {
	Command        string `json:"command"`
	Endpoint       string `json:"endpoint"`
	TransportLabel string `json:"transport_label"`
	Warning        string `json:"warning,omitempty"`
}

// Options configures the builder.
type Options struct {
	Tool           string `mapstructure:"tool"`
	TunnelEndpoint string `mapstructure:"tunnel_endpoint"`
	LocalDevice    string `mapstructure:"local_device"`
}

// Builder maps a transport selection to a deployment command.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.Tool == "" {
		opts.Tool = DefaultTool
	}
	if opts.TunnelEndpoint == "" {
		opts.TunnelEndpoint = DefaultTunnelEndpoint
	}
	if opts.LocalDevice == "" {
		opts.LocalDevice = DefaultLocalDevice
	}
	return &Builder{opts: opts}
}

// Build resolves the endpoint for method and renders the command that
// runs the deployment tool inside nodePath.
func (b *Builder) Build(method, requested, nodePath string) (Command, error) {
	var cmd Command

	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodMango:
		cmd.Endpoint = b.opts.TunnelEndpoint
		cmd.TransportLabel = "Mango (tunneled serial)"

	case MethodUSB:
		requested = strings.TrimSpace(requested)
		cmd.TransportLabel = "USB (local serial)"
		if IsLocalDevice(requested) {
			cmd.Endpoint = requested
		} else {
			cmd.Endpoint = b.opts.LocalDevice
			cmd.Warning = usbWarning(requested, b.opts.LocalDevice)
		}

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnsupportedTransport, method)
	}

	cmd.Command = fmt.Sprintf("cd %s && %s --upload-port %s",
		ShellQuote(nodePath), b.opts.Tool, ShellQuote(cmd.Endpoint))

	return cmd, nil
}

// IsLocalDevice reports whether endpoint looks like a local serial device.
func IsLocalDevice(endpoint string) bool {
	return localDevicePattern.MatchString(endpoint)
}

func usbWarning(requested, fallback string) string {
	switch {
	case requested == "":
		return fmt.Sprintf("no USB port given, using %s", fallback)
	case strings.Contains(requested, "://"):
		return fmt.Sprintf("port %q is a network endpoint, not a USB device; using %s", requested, fallback)
	default:
		return fmt.Sprintf("port %q does not look like a serial device; using %s", requested, fallback)
	}
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
