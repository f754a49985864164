package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basketboard/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second), server
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"rows": 1, "columns": 2}`))
	})
	client.SetTokenSource(func() string { return "tok-123" })

	_, err := client.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})
	client.SetTokenSource(func() string { return "" })

	_, err := client.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_401OnProtectedCallExpiresSession(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "token expired"}`))
	})
	client.SetTokenSource(func() string { return "stale" })

	expired := 0
	client.OnSessionExpired(func() { expired++ })

	_, err := client.DashboardStats(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSessionExpired(err))
	assert.Equal(t, 1, expired, "session expiry hook should fire exactly once")
}

func TestClient_401OnLoginIsAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid credentials"}`))
	})

	expired := 0
	client.OnSessionExpired(func() { expired++ })

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, errors.CodeAuthError, errors.GetCode(err))
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Zero(t, expired, "bad credentials must not tear down a session")
}

func TestClient_ServerMessagePreferredOverFallback(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"server message", `{"message": "No data uploaded"}`, "No data uploaded"},
		{"silent server", ``, "Failed to run K-Means"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			})

			_, err := client.RunSegmentation(context.Background(), 3)
			require.Error(t, err)
			assert.Equal(t, errors.CodeServerError, errors.GetCode(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, http.StatusBadRequest, errors.GetStatus(err))
		})
	}
}

func TestClient_UploadFieldNames(t *testing.T) {
	tests := []struct {
		name      string
		files     []UploadFile
		wantField string
		wantCount int
	}{
		{
			"single file uses legacy field",
			[]UploadFile{{Name: "a.csv", Data: []byte("x,y\n1,2")}},
			"file", 1,
		},
		{
			"multiple files use files field",
			[]UploadFile{
				{Name: "a.csv", Data: []byte("x\n1")},
				{Name: "b.csv", Data: []byte("y\n2")},
			},
			"files", 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseMultipartForm(1<<20))
				parts := r.MultipartForm.File[tt.wantField]
				assert.Len(t, parts, tt.wantCount)
				w.Write([]byte(`{"message": "ok", "rows": 2, "columns": 1}`))
			})

			result, err := client.Upload(context.Background(), tt.files)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Rows)
		})
	}
}

func TestClient_UploadEmptyListRejectedLocally(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	_, err := client.Upload(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Zero(t, requests, "empty upload must not reach the network")
}

func TestClient_RecommendEmptyCartRejectedLocally(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	_, err := client.Recommend(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Zero(t, requests)
}

func TestClient_RuleMiningDecodesScalarItemSets(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"association_rules": [
				{"antecedent": "Milk", "consequent": ["Bread"], "support": 0.1, "confidence": 0.5, "lift": 2}
			],
			"total_rules": 1
		}`))
	})

	result, err := client.RunRuleMining(context.Background(), 0.01, 0.3)
	require.NoError(t, err)
	require.Len(t, result.AssociationRules, 1)
	assert.Equal(t, []string{"Milk"}, []string(result.AssociationRules[0].Antecedent))
}

func TestClient_SetClusterLabelsPayload(t *testing.T) {
	var gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(`{}`))
	})

	err := client.SetClusterLabels(context.Background(), map[int]string{0: "High Value"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels": {"0": "High Value"}}`, gotBody)
}

func TestClient_NetworkFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.DashboardStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNetworkError, errors.GetCode(err))
}
