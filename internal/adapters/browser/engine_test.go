package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// fakeDevtools speaks just enough of the DevTools protocol for the client.
func fakeDevtools(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var req cdpRequest
			if err := wsjson.Read(r.Context(), conn, &req); err != nil {
				return
			}

			resp := cdpResponse{ID: req.ID}
			switch req.Method {
			case "Page.captureScreenshot":
				data := base64.StdEncoding.EncodeToString([]byte("not-a-real-png"))
				resp.Result, _ = json.Marshal(map[string]string{"data": data})
			case "Network.getCookies":
				resp.Result = json.RawMessage(`{"cookies":[{"name":"session","value":"tok"}]}`)
			case "Network.setCookies":
				resp.Result = json.RawMessage(`{}`)
			case "Runtime.evaluate":
				resp.Result = json.RawMessage(`{"result":{"type":"string","value":"ok"}}`)
			default:
				resp.Error = &cdpError{Code: -32601, Message: "method not found"}
			}
			if err := wsjson.Write(r.Context(), conn, resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T, srv *httptest.Server) *engine {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	cdp, err := dialCDP(context.Background(), wsURL)
	require.NoError(t, err)

	eng := &engine{
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		artifactsDir: t.TempDir(),
		callTimeout:  5 * time.Second,
		cdp:          cdp,
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestEngineCall_RoundTrip(t *testing.T) {
	eng := newTestEngine(t, fakeDevtools(t))

	raw, err := eng.Call(context.Background(), "Runtime.evaluate", map[string]string{"expression": "1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":"ok"`)
}

func TestEngineCall_ProtocolError(t *testing.T) {
	eng := newTestEngine(t, fakeDevtools(t))

	_, err := eng.Call(context.Background(), "No.SuchMethod", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestCapture_WritesTimestampedArtifact(t *testing.T) {
	eng := newTestEngine(t, fakeDevtools(t))

	path := eng.Capture(context.Background(), "login failure!")
	require.NotEmpty(t, path)

	base := filepath.Base(path)
	assert.Regexp(t, `^login_failure_\d{8}_\d{6}\.png$`, base,
		"artifact name must be {label}_{YYYYMMDD_HHMMSS}.png with the label sanitized")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not-a-real-png", string(data))
}

func TestCapture_NeverFails(t *testing.T) {
	srv := fakeDevtools(t)
	eng := newTestEngine(t, srv)
	srv.Close() // kill the connection under the engine

	path := eng.Capture(context.Background(), "after_disconnect")
	assert.Empty(t, path, "a failed capture reports an empty path, never an error")
}

func TestAuthState_ExportAndSeed(t *testing.T) {
	eng := newTestEngine(t, fakeDevtools(t))
	ctx := context.Background()

	state, err := eng.AuthState(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"session","value":"tok"}]`, state)

	require.NoError(t, eng.seedAuthState(ctx, state))

	err = eng.seedAuthState(ctx, "not-json")
	assert.Error(t, err)
}

func TestEngineClose_Idempotent(t *testing.T) {
	eng := newTestEngine(t, fakeDevtools(t))

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	_, err := eng.Call(context.Background(), "Runtime.evaluate", nil)
	assert.Error(t, err, "calls after close must fail fast")
}
