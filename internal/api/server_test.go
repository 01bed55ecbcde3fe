package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandhub/internal/authz"
	"brandhub/internal/config"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/store"
	"brandhub/internal/utils"
)

type nopMailer struct{}

func (nopMailer) Send(ctx context.Context, email services.Email) error { return nil }

type memoryObjects struct {
	mu   sync.Mutex
	keys []string
}

func (m *memoryObjects) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *memoryObjects) GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (m *memoryObjects) DeleteObject(ctx context.Context, key string) error { return nil }

type testServer struct {
	t      *testing.T
	server *Server
	store  *store.MemoryStore
	sink   *services.RedisClaimsSink
	issuer *utils.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.LoadTestConfig()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := store.NewMemoryStore()
	bus := events.NewEventBus()
	t.Cleanup(bus.Wait)
	issuer := utils.NewTokenIssuer(cfg.JWT.Secret, nil, cfg.JWT.Issuer, cfg.JWT.TTL)
	sink := services.NewRedisClaimsSink(rdb, cfg.Claims.KeyPrefix, cfg.Claims.MaxBytes)

	srv := NewServer(cfg, Dependencies{
		Issuer:        issuer,
		Organizations: services.NewOrganizationService(st, bus),
		Members:       services.NewMemberService(st, bus),
		Invitations: services.NewInvitationService(st, bus, nopMailer{}, services.InvitationOptions{
			TTL:    cfg.Invitations.TTL,
			AppURL: cfg.Server.AppURL,
		}),
		Brands:  services.NewBrandService(st, bus, &memoryObjects{}, nil),
		Events:  services.NewEventService(st),
		QRCodes: services.NewQRCodeService(st),
		Claims:  services.NewClaimsService(st, sink, authz.NewEncoder()),
	})
	return &testServer{t: t, server: srv, store: st, sink: sink, issuer: issuer}
}

func (ts *testServer) token(userID string) string {
	ts.t.Helper()
	token, err := ts.issuer.Issue(authz.Identity{UserID: userID, Email: userID + "@example.com", Name: userID}, nil)
	require.NoError(ts.t, err)
	return token
}

func (ts *testServer) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(userID))
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	return errBody
}

func (ts *testServer) createOrg(ownerID, name string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/v1/orgs", ownerID, map[string]string{"name": name})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(ts.t, rec)["id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestAuthenticationRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/orgs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication", errorOf(t, rec)["kind"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrganizationRoutes(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")

	rec := ts.do(http.MethodGet, "/api/v1/orgs", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, orgID, mine[0]["id"])
	assert.Equal(t, "owner", mine[0]["role"])

	rec = ts.do(http.MethodGet, "/api/v1/orgs/"+orgID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "authorization", errorOf(t, rec)["kind"])

	rec = ts.do(http.MethodPut, "/api/v1/orgs/"+orgID, "alice", map[string]string{"name": "Acme Live"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Live", decode(t, rec)["name"])
}

func TestValidationErrorResponse(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/orgs", "alice", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := errorOf(t, rec)
	assert.Equal(t, "validation", errBody["kind"])
	fields := errBody["fields"].(map[string]interface{})
	assert.Equal(t, "name is required", fields["name"])
}

func TestInvitationFlow(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")
	invite := map[string]interface{}{"email": "bob@example.com", "role": "member"}

	rec := ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/invitations", "alice", invite)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	invitationID := decode(t, rec)["id"].(string)
	assert.NotContains(t, rec.Body.String(), "token")

	rec = ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/invitations", "alice", invite)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, invitationID, errorOf(t, rec)["resourceId"])

	pending, err := ts.store.ListInvitations(context.Background(), orgID, models.InvitationStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	token := pending[0].Token

	rec = ts.do(http.MethodGet, "/api/v1/invitations/preview/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode(t, rec)
	assert.Equal(t, "Acme Events", preview["organizationName"])
	assert.Equal(t, "member", preview["role"])
	keys := make([]string, 0, len(preview))
	for k := range preview {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"organizationName", "role", "inviterName"}, keys)

	rec = ts.do(http.MethodPost, "/api/v1/invitations/accept", "carol", map[string]string{"token": token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/invitations/accept", "bob", map[string]string{"token": token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "member", decode(t, rec)["role"])

	rec = ts.do(http.MethodPost, "/api/v1/invitations/"+invitationID+"/cancel", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "state", errorOf(t, rec)["kind"])

	rec = ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/brands", "bob", map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvitationListRejectsUnknownStatus(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")

	rec := ts.do(http.MethodGet, "/api/v1/orgs/"+orgID+"/invitations?status=lost", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/orgs/"+orgID+"/invitations?status=pending", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshEmbedsClaims(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")

	rec := ts.do(http.MethodPost, "/api/v1/auth/refresh", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := ts.issuer.Verify(resp.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.Access)
	assert.Equal(t, int64(1), claims.Access.CV)
	require.Contains(t, claims.Access.Orgs, orgID)
	assert.Equal(t, []string{"*"}, claims.Access.Orgs[orgID].P)

	rec = ts.do(http.MethodGet, "/api/v1/auth/me", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "alice@example.com", me["profile"].(map[string]interface{})["email"])
	assert.Len(t, me["organizations"], 1)
}

func TestRefreshReportsPublishedFallback(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")
	ctx := context.Background()
	fallback := authz.ClaimsPayload{Orgs: map[string]authz.OrgClaims{}, CV: 4}
	require.NoError(t, ts.sink.SetClaims(ctx, "alice", fallback))
	require.NoError(t, ts.sink.SetClaims(ctx, "zoe", fallback))

	rec := ts.do(http.MethodPost, "/api/v1/auth/refresh", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["degraded"])
	assert.EqualValues(t, 4, body["access"].(map[string]interface{})["cv"])
	assert.NotContains(t, body["access"].(map[string]interface{})["orgs"], orgID)

	rec = ts.do(http.MethodPost, "/api/v1/auth/refresh", "zoe", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, decode(t, rec), "degraded")
}

func TestQRCodeScanRedirects(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")

	rec := ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/brands", "alice", map[string]string{"name": "Summer Fest"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	brandID := decode(t, rec)["id"].(string)

	rec = ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/qrcodes", "alice", map[string]string{
		"brandId":   brandID,
		"label":     "Main gate",
		"targetUrl": "https://summer.test/tickets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	codeID := decode(t, rec)["id"].(string)

	rec = ts.do(http.MethodGet, "/q/"+codeID, "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://summer.test/tickets", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/q/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBrandLogoUpload(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("alice", "Acme Events")
	rec := ts.do(http.MethodPost, "/api/v1/orgs/"+orgID+"/brands", "alice", map[string]string{"name": "Summer Fest"})
	require.Equal(t, http.StatusCreated, rec.Code)
	brandID := decode(t, rec)["id"].(string)

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/"+orgID+"/brands/"+brandID+"/logo", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+ts.token("alice"))
		rec := httptest.NewRecorder()
		ts.server.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec = upload("image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(decode(t, rec)["logoUrl"].(string), "https://cdn.test/orgs/"+orgID+"/brands/"+brandID+"/logo-"))

	rec = upload("text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorOf(t, rec)["kind"])
}
