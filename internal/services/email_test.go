package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostmarkClientDeliver(t *testing.T) {
	var got postmarkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"m-1"}`))
	}))
	defer srv.Close()

	client := NewPostmarkClient(srv.URL, "server-token", "noreply@brandhub.test")
	err := client.Deliver(context.Background(), Email{
		To:            "alice@example.com",
		TemplateAlias: TemplateOrganizationInvitation,
		Tag:           "invitation",
		Model:         map[string]interface{}{"organization_name": "Acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, "noreply@brandhub.test", got.From)
	assert.Equal(t, "alice@example.com", got.To)
	assert.Equal(t, TemplateOrganizationInvitation, got.TemplateAlias)
	assert.Equal(t, "Acme", got.TemplateModel["organization_name"])
	assert.Equal(t, "outbound", got.MessageStream)
}

func TestPostmarkClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusUnprocessableEntity, `{"ErrorCode":1101,"Message":"Template not found"}`},
		{"error code on 200", http.StatusOK, `{"ErrorCode":406,"Message":"Inactive recipient"}`},
		{"server error", http.StatusBadGateway, `upstream down`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewPostmarkClient(srv.URL, "t", "from@test").Deliver(context.Background(), Email{To: "x@example.com"})
			assert.Error(t, err)
		})
	}
}

func TestPostmarkClientWithoutToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	err := NewPostmarkClient(srv.URL, "", "from@test").Deliver(context.Background(), Email{To: "x@example.com"})

	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}
