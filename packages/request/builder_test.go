package request

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/packages/vars"
)

func TestResolveString(t *testing.T) {
	store := vars.NewStore()
	store.Set("token", "abc123")
	store.Set("user_id", float64(42))
	r := NewResolver(store, nil)

	t.Run("interpolation", func(t *testing.T) {
		s, err := r.ResolveString("Bearer {{token}}")
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc123", s)
	})

	t.Run("numeric variable stays clean", func(t *testing.T) {
		s, err := r.ResolveString("/users/{{user_id}}")
		require.NoError(t, err)
		assert.Equal(t, "/users/42", s)
	})

	t.Run("unset variable fails", func(t *testing.T) {
		_, err := r.ResolveString("{{missing}}")
		require.Error(t, err)
		assert.True(t, vars.IsNotFound(err))
	})

	t.Run("builtin function", func(t *testing.T) {
		s, err := r.ResolveString("{{md5(hello)}}")
		require.NoError(t, err)
		assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", s)
	})
}

func TestResolveValueKeepsTypes(t *testing.T) {
	store := vars.NewStore()
	store.Set("goods_id", float64(18382788819))
	store.Set("tags", []any{"a", "b"})
	r := NewResolver(store, nil)

	v, err := r.ResolveValue(map[string]any{
		"goodsId": "{{goods_id}}",
		"label":   "id={{goods_id}}",
		"tags":    "{{tags}}",
		"count":   3,
	})
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, float64(18382788819), m["goodsId"])
	assert.Equal(t, "id=18382788819", m["label"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])
	assert.Equal(t, 3, m["count"])
}

func TestBuild(t *testing.T) {
	store := vars.NewStore()
	store.Set("token", "abc123")
	store.Set("goods_id", "18382788819")

	t.Run("relative URL joined to base", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com/"))
		req, err := b.Build(Spec{Method: "get", URL: "/v1/login"})
		require.NoError(t, err)
		assert.Equal(t, "GET", req.Method)
		assert.Equal(t, "https://api.example.com/v1/login", req.URL)
	})

	t.Run("absolute URL kept", func(t *testing.T) {
		b := NewBuilder(store)
		req, err := b.Build(Spec{Method: "GET", URL: "https://other.example.com/ping"})
		require.NoError(t, err)
		assert.Equal(t, "https://other.example.com/ping", req.URL)
	})

	t.Run("relative URL without base fails", func(t *testing.T) {
		b := NewBuilder(store)
		_, err := b.Build(Spec{Method: "GET", URL: "/v1/login"})
		assert.Error(t, err)
	})

	t.Run("headers resolved and merged", func(t *testing.T) {
		b := NewBuilder(store,
			WithBaseURL("https://api.example.com"),
			WithHeaders(map[string]string{"X-App": "caseflow", "Accept": "text/plain"}),
		)
		req, err := b.Build(Spec{
			Method: "GET",
			URL:    "/v1/goods",
			Headers: map[string]string{
				"Authorization": "Bearer {{token}}",
				"Accept":        "application/json",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "caseflow", req.Headers["X-App"])
		assert.Equal(t, "Bearer abc123", req.Headers["Authorization"])
		// Case header overrides the builder default.
		assert.Equal(t, "application/json", req.Headers["Accept"])
	})

	t.Run("query params resolved", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com"))
		req, err := b.Build(Spec{
			Method: "GET",
			URL:    "/v1/goods",
			Params: map[string]any{"goodsId": "{{goods_id}}", "page": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, "18382788819", req.QueryParams["goodsId"])
		assert.Equal(t, "2", req.QueryParams["page"])
	})

	t.Run("form body", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com"))
		req, err := b.Build(Spec{
			Method: "POST",
			URL:    "/v1/login",
			Data:   map[string]any{"username": "demo", "token": "{{token}}"},
		})
		require.NoError(t, err)
		assert.Equal(t, "abc123", req.Form["token"])
		assert.Nil(t, req.Body)
	})

	t.Run("json body resolved recursively", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com"))
		req, err := b.Build(Spec{
			Method: "POST",
			URL:    "/v1/orders",
			JSON: map[string]any{
				"goodsId": "{{goods_id}}",
				"items":   []any{map[string]any{"sku": "{{goods_id}}-A"}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "application/json", req.Headers["Content-Type"])

		var body map[string]any
		require.NoError(t, json.Unmarshal(req.Body, &body))
		assert.Equal(t, "18382788819", body["goodsId"])
		items := body["items"].([]any)
		assert.Equal(t, "18382788819-A", items[0].(map[string]any)["sku"])
	})

	t.Run("both bodies rejected", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com"))
		_, err := b.Build(Spec{
			Method: "POST",
			URL:    "/v1/x",
			Data:   map[string]any{"a": "1"},
			JSON:   map[string]any{"a": "1"},
		})
		assert.Error(t, err)
	})

	t.Run("unset variable aborts build", func(t *testing.T) {
		b := NewBuilder(store, WithBaseURL("https://api.example.com"))
		_, err := b.Build(Spec{
			Method: "POST",
			URL:    "/v1/orders",
			JSON:   map[string]any{"orderId": "{{order_id}}"},
		})
		require.Error(t, err)
		assert.True(t, vars.IsNotFound(err))
	})

	t.Run("cookies and timeout", func(t *testing.T) {
		b := NewBuilder(store,
			WithBaseURL("https://api.example.com"),
			WithCookies(map[string]string{"session": "s1"}),
		)
		req, err := b.Build(Spec{Method: "GET", URL: "/v1/me", Timeout: 5 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, "s1", req.CookieJar["session"])
		assert.Equal(t, 5*time.Second, req.Timeout)
	})
}
