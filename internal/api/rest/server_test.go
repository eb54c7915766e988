package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/api/websocket"
	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/controllers"
	"github.com/KevinKickass/FlasherCore/internal/deploy"
	"github.com/KevinKickass/FlasherCore/internal/interfaces"
	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/storage"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

type stubExecutor struct{}

func (stubExecutor) Run(ctx context.Context, cmd deploy.Command) (string, error) {
	return "ok: " + cmd.Endpoint, nil
}

type testLifecycle struct {
	cfg         *config.Config
	catalog     *catalog.Store
	controllers *controllers.Registry
	scaffolder  *scaffold.Scaffolder
	pipeline    *pipeline.Pipeline
	history     storage.History
}

func (l *testLifecycle) Config() *config.Config             { return l.cfg }
func (l *testLifecycle) Pipeline() *pipeline.Pipeline       { return l.pipeline }
func (l *testLifecycle) Catalog() *catalog.Store            { return l.catalog }
func (l *testLifecycle) Controllers() *controllers.Registry { return l.controllers }
func (l *testLifecycle) Scaffolder() *scaffold.Scaffolder   { return l.scaffolder }
func (l *testLifecycle) History() storage.History           { return l.history }
func (l *testLifecycle) Shutdown(ctx context.Context) error { return nil }
func (l *testLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "RUNNING"}
}

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()

	tpl := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tpl, "node_template"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tpl, "system.conf"), []byte("FOO=bar\n"), 0o644))

	cat := catalog.NewStaticStore(map[string]*catalog.DeviceType{
		"dht": {Key: "dht", Label: "DHT", RequiredPins: []string{"Pin1"}, CallTemplate: "dht(name, Pin1)"},
	}, zap.NewNop())
	reg, err := controllers.NewRegistry("", zap.NewNop())
	require.NoError(t, err)

	cfg := &config.Config{}
	sc := scaffold.NewScaffolder(afero.NewOsFs(), tpl, scaffold.DefaultFileNames(), zap.NewNop())
	history := storage.NewMemoryHistory(time.Hour, time.Hour)
	lm := &testLifecycle{
		cfg:         cfg,
		catalog:     cat,
		controllers: reg,
		scaffolder:  sc,
		history:     history,
		pipeline: pipeline.New(pipeline.Deps{
			Catalog:     cat,
			Controllers: reg,
			Scaffolder:  sc,
			Builder:     deploy.NewBuilder(deploy.Options{}),
			Executor:    stubExecutor{},
			History:     history,
			Logger:      zap.NewNop(),
		}),
	}

	authService := auth.NewAuthService(cfg.Auth, zap.NewNop())
	srv, err := NewServer(cfg, lm, zap.NewNop(), websocket.NewHub(zap.NewNop(), authService), authService)
	require.NoError(t, err)
	return srv.Handler(), t.TempDir()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func deployBody(root string, pins ...string) map[string]any {
	return map[string]any{
		"folder":      root,
		"node_name":   "node1",
		"controller":  "wemos",
		"transport":   "usb",
		"port":        "/dev/ttyUSB3",
		"credentials": map[string]any{"mqtt_host": "10.0.0.1"},
		"slots": []any{
			map[string]any{"device": "dht", "channel": "ht01", "pins": pins},
		},
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	code, body := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
}

func TestCatalogAndControllers(t *testing.T) {
	h, _ := newTestServer(t)

	code, body := doJSON(t, h, http.MethodGet, "/api/v1/catalog/devices", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["count"])

	code, _ = doJSON(t, h, http.MethodGet, "/api/v1/catalog/devices/nope", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, body = doJSON(t, h, http.MethodGet, "/api/v1/controllers", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 2, body["count"])
}

func TestDeployEndpoint(t *testing.T) {
	h, root := newTestServer(t)

	code, body := doJSON(t, h, http.MethodPost, "/api/v1/deploy", deployBody(root, "D1"))
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, true, body["success"])
	require.Equal(t, "ok: /dev/ttyUSB3", body["output"])

	program, err := os.ReadFile(filepath.Join(root, "node1", "setup.cpp"))
	require.NoError(t, err)
	require.Equal(t, "dht(ht01, D1);\n", string(program))

	id := body["deployment_id"].(string)
	code, body = doJSON(t, h, http.MethodGet, "/api/v1/deployments/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "node1", body["node_name"])

	code, body = doJSON(t, h, http.MethodGet, "/api/v1/nodes?folder="+root, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["count"])
}

func TestDeployEndpoint_ValidationErrors(t *testing.T) {
	h, root := newTestServer(t)

	code, body := doJSON(t, h, http.MethodPost, "/api/v1/deploy", deployBody(root, "D1", "D2"))
	require.Equal(t, http.StatusUnprocessableEntity, code)
	errBody := body["error"].(map[string]any)
	require.Equal(t, types.CodeDeployUnprocessed, errBody["code"])
	details := errBody["details"].(map[string]any)
	require.Len(t, details["validation_errors"], 1)

	code, _ = doJSON(t, h, http.MethodPost, "/api/v1/validate", deployBody(root, "D1"))
	require.Equal(t, http.StatusOK, code)
}

func TestDeployEndpoint_SchemaRejects(t *testing.T) {
	h, root := newTestServer(t)

	bad := deployBody(root, "D1")
	bad["node_name"] = "../escape"
	code, body := doJSON(t, h, http.MethodPost, "/api/v1/deploy", bad)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, types.CodeDeployBadRequest, body["error"].(map[string]any)["code"])

	bad = deployBody(root, "D1")
	bad["transport"] = "carrier-pigeon"
	code, _ = doJSON(t, h, http.MethodPost, "/api/v1/deploy", bad)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestNodesEndpoints(t *testing.T) {
	h, root := newTestServer(t)

	code, _ := doJSON(t, h, http.MethodPost, "/api/v1/nodes", map[string]any{"folder": root, "node_name": "a"})
	require.Equal(t, http.StatusCreated, code)

	code, body := doJSON(t, h, http.MethodPost, "/api/v1/nodes", map[string]any{"folder": root, "node_name": "a"})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, types.CodeNodesConflict, body["error"].(map[string]any)["code"])

	code, _ = doJSON(t, h, http.MethodPost, "/api/v1/nodes/rename", map[string]any{"folder": root, "from": "a", "to": "b"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, h, http.MethodPost, "/api/v1/nodes/rename", map[string]any{"folder": root, "from": "a", "to": "c"})
	require.Equal(t, http.StatusNotFound, code)

	code, _ = doJSON(t, h, http.MethodGet, "/api/v1/nodes", nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestDeploymentsEndpoint_BadID(t *testing.T) {
	h, _ := newTestServer(t)

	code, _ := doJSON(t, h, http.MethodGet, "/api/v1/deployments/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, h, http.MethodGet, "/api/v1/deployments/6f1c2a7e-5d7b-4a53-9d4e-0b0a1c2d3e4f", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = doJSON(t, h, http.MethodGet, "/api/v1/deployments?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/deploy", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
