package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taleemedge/chatbot/internal/adapter/llm"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/oracle"
	"github.com/taleemedge/chatbot/internal/service"
	v1 "github.com/taleemedge/chatbot/internal/transport/http/v1"
	"github.com/taleemedge/chatbot/policy"
	"github.com/taleemedge/chatbot/tests/helpers"
)

func newTestServer(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	log, _ := test.NewNullLogger()
	m := metrics.New()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	o := oracle.New(&llm.MockClient{Response: "Sure."}, oracle.Config{Timeout: time.Second}, log, m)
	svc := service.New(db, o, log,
		service.WithPolicy(engine),
		service.WithActivitySink(service.NewStoreActivitySink(db, log)),
		service.WithMetrics(m),
	)
	return NewServer(svc, ServerOptions{AuthAPIKey: apiKey, Metrics: m, Log: log})
}

func do(t *testing.T, srv http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServerConversationFlow(t *testing.T) {
	srv := newTestServer(t, "")
	user := map[string]string{v1.HeaderUserID: "u1"}

	rec := do(t, srv, http.MethodPost, "/api/chatbot/send-message/", `{"message":"Explain gravity"}`, user)
	require.Equal(t, http.StatusOK, rec.Code)
	var sent struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	rec = do(t, srv, http.MethodPost, "/api/chatbot/send-message/", `{"message":"And on the moon?","session_id":"`+sent.SessionID+`"}`, user)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/sessions/"+sent.SessionID+"/", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 4)
	assert.Equal(t, "user", detail.Messages[0].Role)
	assert.Equal(t, "assistant", detail.Messages[3].Role)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/sessions/", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 4, list[0]["message_count"])
	assert.NotContains(t, list[0], "messages")

	rec = do(t, srv, http.MethodDelete, "/api/chatbot/sessions/delete-all/", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted_count":1`)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/sessions/"+sent.SessionID+"/", "", user)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRequiresIdentity(t *testing.T) {
	srv := newTestServer(t, "")

	rec := do(t, srv, http.MethodGet, "/api/chatbot/sessions/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerBearerKey(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	rec := do(t, srv, http.MethodGet, "/api/chatbot/preferences/", "", map[string]string{v1.HeaderUserID: "u1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/preferences/", "", map[string]string{
		v1.HeaderUserID: "u1",
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/preferences/", "", map[string]string{
		v1.HeaderUserID: "u1",
		"Authorization": "Bearer s3cret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerMetrics(t *testing.T) {
	srv := newTestServer(t, "")

	rec := do(t, srv, http.MethodPost, "/api/chatbot/send-message/", `{"message":"hi"}`, map[string]string{v1.HeaderUserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatbot_turns_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `chatbot_oracle_requests_total{operation="reply",outcome="success"} 1`)
}

func TestServerRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, "")
	user := map[string]string{v1.HeaderUserID: "u1"}

	rec := do(t, srv, http.MethodPost, "/api/chatbot/send-message/", `{"message":`, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/chatbot/sessions/", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
