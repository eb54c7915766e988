package deploy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuild_MangoIgnoresRequestedEndpoint(t *testing.T) {
	b := NewBuilder(Options{})

	rapid.Check(t, func(t *rapid.T) {
		requested := rapid.String().Draw(t, "requested")
		cmd, err := b.Build("mango", requested, "/srv/iot/node1")
		if err != nil {
			t.Fatal(err)
		}
		if cmd.Endpoint != DefaultTunnelEndpoint || cmd.Warning != "" {
			t.Fatalf("unexpected command %+v", cmd)
		}
	})
}

func TestBuild_USBRejectsTunnelEndpoint(t *testing.T) {
	cmd, err := NewBuilder(Options{}).Build("usb", "rfc2217://host:5000", "/srv/iot/node1")
	require.NoError(t, err)
	require.Equal(t, DefaultLocalDevice, cmd.Endpoint)
	require.NotEmpty(t, cmd.Warning)
	require.Equal(t, "cd '/srv/iot/node1' && iot exec deploy serial --upload-port '/dev/ttyUSB0'", cmd.Command)
}

func TestBuild_USBEndpoints(t *testing.T) {
	b := NewBuilder(Options{LocalDevice: "/dev/ttyACM0", Tool: "deploy-tool"})

	tests := []struct {
		requested string
		endpoint  string
		warns     bool
	}{
		{"/dev/ttyUSB3", "/dev/ttyUSB3", false},
		{" /dev/serial/by-id/usb-1a86_USB2.0-Serial-if00-port0 ", "/dev/serial/by-id/usb-1a86_USB2.0-Serial-if00-port0", false},
		{"COM7", "COM7", false},
		{"", "/dev/ttyACM0", true},
		{"192.168.0.5:5000", "/dev/ttyACM0", true},
		{"/dev/tty; rm -rf /", "/dev/ttyACM0", true},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			cmd, err := b.Build("USB", tt.requested, "/n")
			require.NoError(t, err)
			require.Equal(t, tt.endpoint, cmd.Endpoint)
			require.Equal(t, tt.warns, cmd.Warning != "")
			require.Contains(t, cmd.Command, "deploy-tool --upload-port ")
		})
	}
}

func TestBuild_UnsupportedTransport(t *testing.T) {
	_, err := NewBuilder(Options{}).Build("bluetooth", "", "/n")
	require.True(t, errors.Is(err, ErrUnsupportedTransport))
}

func TestShellQuote(t *testing.T) {
	require.Equal(t, `'it'\''s'`, ShellQuote("it's"))
	require.Equal(t, `'/srv/my node'`, ShellQuote("/srv/my node"))
}
