package runner

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/packages/expect"
	"github.com/caseflow/caseflow/packages/suite"
	"github.com/caseflow/caseflow/packages/vars"
)

// loginServer mimics a two-step API: login issues a token, the goods listing
// requires it.
func loginServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": 1,
			"msg":  "登录成功",
			"data": map[string]any{"token": "tok-123"},
		})
	})
	mux.HandleFunc("/v1/goods", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"msg": "unauthorized"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 1,
			"goodsList": []map[string]any{
				{"goodsId": "18382788819", "name": "demo goods"},
			},
		})
	})
	return httptest.NewServer(mux)
}

func loginCase() suite.Case {
	return suite.Case{
		Name:    "login",
		Method:  "POST",
		URL:     "/v1/login",
		Data:    map[string]any{"username": "demo"},
		Extract: map[string]string{"token": "data.token"},
		Validate: suite.RuleSet{
			{Op: expect.OpContains, Checks: map[string]any{"msg": "登录成功"}},
		},
	}
}

func goodsCase() suite.Case {
	return suite.Case{
		Name:    "list goods",
		Method:  "GET",
		URL:     "/v1/goods",
		Headers: map[string]string{"Authorization": "Bearer {{token}}"},
		Validate: suite.RuleSet{
			{Op: expect.OpContains, Checks: map[string]any{
				expect.StatusCodeKey:   200,
				"goodsList[0].goodsId": "18382788819",
			}},
		},
	}
}

func TestRunSequentialFlow(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	s := NewSession()
	summary, err := s.Run([]*suite.Suite{{
		Name:    "login flow",
		BaseURL: srv.URL,
		Cases:   []suite.Case{loginCase(), goodsCase()},
	}})
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, StatusPassed, summary.Outcomes[0].Status)
	assert.Equal(t, StateAsserted, summary.Outcomes[0].State)
}

func TestRunOrderMatters(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	// Goods before login: the token variable is not set yet, so the build
	// fails before any request is sent.
	s := NewSession()
	summary, err := s.Run([]*suite.Suite{{
		Name:    "reversed",
		BaseURL: srv.URL,
		Cases:   []suite.Case{goodsCase(), loginCase()},
	}})
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 2)
	first := summary.Outcomes[0]
	assert.Equal(t, StatusErrored, first.Status)
	assert.Equal(t, StatePending, first.State)
	assert.True(t, vars.IsNotFound(first.Err))
	assert.Equal(t, KindVariableNotFound, Classify(first.Err))

	// The login case itself still runs and passes.
	assert.Equal(t, StatusPassed, summary.Outcomes[1].Status)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Passed)
}

func TestRunFailureProducesDiagnostics(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	c := loginCase()
	c.Validate = suite.RuleSet{
		{Op: expect.OpEq, Checks: map[string]any{"msg": "登录失败"}},
		{Op: expect.OpEq, Checks: map[string]any{"code": 1}},
	}

	s := NewSession()
	summary, err := s.Run([]*suite.Suite{{
		Name:    "failing",
		BaseURL: srv.URL,
		Cases:   []suite.Case{c},
	}})
	require.NoError(t, err)

	assert.False(t, summary.OK())
	outcome := summary.Outcomes[0]
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, StateAsserted, outcome.State)
	// Both rules evaluated despite the first failing.
	require.Len(t, outcome.Diagnostics, 2)
	assert.False(t, outcome.Diagnostics[0].Passed)
	assert.True(t, outcome.Diagnostics[1].Passed)
}

func TestRunSkip(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	skipped := goodsCase()
	skipped.Skip = true

	s := NewSession()
	summary, err := s.Run([]*suite.Suite{{
		Name:    "with skip",
		BaseURL: srv.URL,
		Cases:   []suite.Case{loginCase(), skipped},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Passed)
	assert.True(t, summary.OK())
	assert.Equal(t, StatusSkipped, summary.Outcomes[1].Status)
}

func TestRunBail(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	broken := loginCase()
	broken.Validate = suite.RuleSet{
		{Op: expect.OpEq, Checks: map[string]any{"code": 99}},
	}

	s := NewSession(WithBail(true))
	summary, err := s.Run([]*suite.Suite{{
		Name:    "bail",
		BaseURL: srv.URL,
		Cases:   []suite.Case{broken, goodsCase()},
	}})
	require.NoError(t, err)

	// The second case never ran.
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunTransportFailure(t *testing.T) {
	s := NewSession()
	summary, err := s.Run([]*suite.Suite{{
		Name:    "unreachable",
		BaseURL: "http://127.0.0.1:1",
		Cases: []suite.Case{{
			Name:   "ping",
			Method: "GET",
			URL:    "/ping",
		}},
	}})
	require.NoError(t, err)

	outcome := summary.Outcomes[0]
	assert.Equal(t, StatusErrored, outcome.Status)
	assert.Equal(t, StateRequestBuilt, outcome.State)
	assert.Equal(t, KindTransport, Classify(outcome.Err))
}

func TestRunClearsStoreAndRunsCleanupOnce(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	cleanups := 0
	s := NewSession(WithCleanup(func() error {
		cleanups++
		return nil
	}))

	suites := []*suite.Suite{{
		Name:    "login flow",
		BaseURL: srv.URL,
		Cases:   []suite.Case{loginCase(), goodsCase()},
	}}

	_, err := s.Run(suites)
	require.NoError(t, err)
	assert.Equal(t, 1, cleanups)
}

type recordingNotifier struct {
	summaries []*Summary
}

func (n *recordingNotifier) Notify(s *Summary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

func TestRunNotifies(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	n := &recordingNotifier{}
	s := NewSession(WithNotifier(n))
	_, err := s.Run([]*suite.Suite{{
		Name:    "login flow",
		BaseURL: srv.URL,
		Cases:   []suite.Case{loginCase()},
	}})
	require.NoError(t, err)

	require.Len(t, n.summaries, 1)
	assert.Contains(t, n.summaries[0].Message(), "1 passed")
}

func TestCaseHookStreamsOutcomes(t *testing.T) {
	srv := loginServer(t)
	defer srv.Close()

	var names []string
	s := NewSession(WithCaseHook(func(o CaseOutcome) {
		names = append(names, o.Name)
	}))
	_, err := s.Run([]*suite.Suite{{
		Name:    "login flow",
		BaseURL: srv.URL,
		Cases:   []suite.Case{loginCase(), goodsCase()},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "list goods"}, names)
}
