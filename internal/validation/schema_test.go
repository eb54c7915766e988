package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_Deploy(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	valid := `{
		"folder": "/srv/iot",
		"node_name": "kitchen-01",
		"controller": "Wemos D1 Mini",
		"transport": "usb",
		"port": "/dev/ttyUSB1",
		"credentials": {"mqtt_host": "10.0.0.2"},
		"slots": [{"device": "dht", "channel": "ht01", "pins": ["D1"], "filter": "average", "filter_params": {"buflen": 10}}]
	}`
	require.NoError(t, v.ValidateDeploy([]byte(valid)))

	tests := map[string]string{
		"bad node name": `{"folder": "/x", "node_name": "a/b", "controller": "c", "transport": "usb", "slots": []}`,
		"too many slots": `{"folder": "/x", "node_name": "n", "controller": "c", "transport": "usb",
			"slots": [{}, {}, {}, {}]}`,
		"unknown slot field": `{"folder": "/x", "node_name": "n", "controller": "c", "transport": "usb",
			"slots": [{"sensor1": "dht"}]}`,
		"missing folder": `{"node_name": "n", "controller": "c", "transport": "usb", "slots": []}`,
		"not json":       `{`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			require.Error(t, v.ValidateDeploy([]byte(body)))
		})
	}
}

func TestSchemaValidator_Init(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	require.NoError(t, v.ValidateInit([]byte(`{"folder": "/srv/iot", "node_name": "n1"}`)))
	require.Error(t, v.ValidateInit([]byte(`{"folder": "/srv/iot", "node_name": ""}`)))
	require.Error(t, v.ValidateInit([]byte(`{"folder": "/srv/iot", "node_name": "n", "credentials": {"token": "x"}}`)))
}
