package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestWebSocketPredict(t *testing.T) {
	conn := dialWS(t, newEnv(t, ml.ExtendedSchema(), extendedScaler, extendedLogistic))

	values := make(map[string]any)
	for k, v := range scenarioValues() {
		values[k] = v
	}
	require.NoError(t, conn.WriteJSON(wsMessage{Type: "predict", Values: values}))

	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "result", reply["type"])
	assert.Equal(t, "No Failure", reply["label"])
	assert.InDelta(t, scenarioConfidence, reply["confidence"], 1e-9)
	assert.Len(t, reply["features"], 6)
}

func TestWebSocketErrorsKeepConnectionOpen(t *testing.T) {
	conn := dialWS(t, newEnv(t, ml.ExtendedSchema(), extendedScaler, extendedLogistic))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "predict",
		"values": map[string]any{"torque": 500},
	}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Torque [Nm] must be at most 100.00", reply.Fields[ml.KeyTorque])

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "subscribe"}))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Error, "unknown message type")

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "ping"}))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newEnv(t, ml.BasicSchema(), basicScaler, basicTree)
	env.handlers.deps.AllowedOrigins = []string{"https://plant.example"}
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
