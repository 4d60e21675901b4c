package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCMS(t *testing.T, handler http.HandlerFunc) *CMSClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCMSClient(CMSOptions{BaseURL: server.URL + "/v2021-10-21", Dataset: "production", Token: "secret"})
}

func TestNewCMSClient_DefaultHost(t *testing.T) {
	client := NewCMSClient(CMSOptions{ProjectID: "abc", APIVersion: "2023-05-03", UseCDN: true})
	assert.Equal(t, "https://abc.apicdn.sanity.io/v2023-05-03", client.baseURL)
	assert.Equal(t, "production", client.dataset)

	withToken := NewCMSClient(CMSOptions{ProjectID: "abc", UseCDN: true, Token: "t"})
	assert.Equal(t, "https://abc.api.sanity.io/v2021-10-21", withToken.baseURL)
}

func TestCMSClient_FetchSendsQueryAndParams(t *testing.T) {
	client := newTestCMS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2021-10-21/data/query/production", r.URL.Path)
		assert.Equal(t, CategoryProductQuery, r.URL.Query().Get("query"))
		assert.Equal(t, `"grocery"`, r.URL.Query().Get("$category"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ms": 3, "result": [{"_id": "p1", "price": "10"}]}`))
	})

	raw, err := client.Fetch(context.Background(), CategoryProductQuery, map[string]interface{}{"category": "grocery"})
	require.NoError(t, err)

	var docs []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &docs))
	assert.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0]["_id"])
}

func TestCMSClient_FetchNullResultIsNotFound(t *testing.T) {
	client := newTestCMS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": null}`))
	})

	_, err := client.Fetch(context.Background(), ProductDetailQuery, map[string]interface{}{"id": "missing"})

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCMSClient_FetchErrorStatus(t *testing.T) {
	client := newTestCMS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"description": "expected '}' following object body", "type": "queryParseError"}}`))
	})

	_, err := client.Fetch(context.Background(), "*[", nil)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "following object body")
}

func TestCMSClient_FetchHonoursContext(t *testing.T) {
	client := newTestCMS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": []}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, ProductListQuery, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
