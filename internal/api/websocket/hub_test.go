package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/events"
)

func startHub(t *testing.T, svc *auth.AuthService) (*Hub, string) {
	t.Helper()
	hub := NewHub(zap.NewNop(), svc)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readType(t *testing.T, conn *gws.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_OpenAccessBroadcastsEvents(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)

	require.Equal(t, string(MessageTypeAuthSuccess), readType(t, conn)["type"])
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.Event{
		Type:         events.TypeDeploymentFinished,
		DeploymentID: "d1",
		Timestamp:    time.Now(),
	}))

	msg := readType(t, conn)
	require.Equal(t, string(MessageTypeDeploymentFinished), msg["type"])
	data := msg["data"].(map[string]any)
	require.Equal(t, "d1", data["deployment_id"])
}

func TestHub_SubscriptionFiltersByNode(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)
	readType(t, conn)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, NodeName: "n1"}))
	// Give the read pump time to store the subscription.
	time.Sleep(100 * time.Millisecond)

	hub.Publish(context.Background(), events.Event{Type: events.TypeDeploymentStarted, NodeName: "other"})
	hub.Publish(context.Background(), events.Event{Type: events.TypeDeploymentStarted, NodeName: "n1"})

	msg := readType(t, conn)
	require.Equal(t, "n1", msg["data"].(map[string]any)["node_name"])
}

func TestHub_RequiresAuthWhenEnabled(t *testing.T) {
	token, hash, err := auth.GenerateMachineToken()
	require.NoError(t, err)
	svc := auth.NewAuthService(config.AuthConfig{
		Enabled:        true,
		AccessTokenTTL: time.Minute,
		MachineTokens:  []config.MachineTokenConfig{{Name: "ci", TokenHash: hash, Role: "viewer"}},
	}, zap.NewNop())

	hub, url := startHub(t, svc)

	bad := dial(t, url)
	require.NoError(t, bad.WriteJSON(ClientMessage{Type: MessageTypeAuth, Token: "nope"}))
	require.Equal(t, string(MessageTypeAuthFailed), readType(t, bad)["type"])

	good := dial(t, url)
	require.NoError(t, good.WriteJSON(ClientMessage{Type: MessageTypeAuth, Token: token}))
	msg := readType(t, good)
	require.Equal(t, string(MessageTypeAuthSuccess), msg["type"])
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}
