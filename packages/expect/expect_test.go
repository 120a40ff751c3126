package expect

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/packages/db"
	"github.com/caseflow/caseflow/packages/httpclient"
)

func jsonResponse(status int, body string) *httpclient.Response {
	return &httpclient.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   10 * time.Millisecond,
	}
}

func TestContains(t *testing.T) {
	resp := jsonResponse(200, `{"code":1,"msg":"登录成功","error_code":null,"token":"abc123def"}`)

	t.Run("matching checks pass", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op: OpContains,
			Checks: map[string]any{
				"msg":        "登录成功",
				"error_code": "none",
			},
		}})

		assert.True(t, pass)
		require.Len(t, diags, 2)
		for _, d := range diags {
			assert.True(t, d.Passed, d.String())
		}
	})

	t.Run("substring match", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpContains,
			Checks: map[string]any{"token": "123"},
		}})
		assert.True(t, pass)
	})

	t.Run("numeric value coerced", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpContains,
			Checks: map[string]any{"code": 1},
		}})
		assert.True(t, pass)
	})

	t.Run("mismatch fails with both values", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpContains,
			Checks: map[string]any{"msg": "登录失败"},
		}})

		assert.False(t, pass)
		require.Len(t, diags, 1)
		assert.False(t, diags[0].Passed)
		assert.Equal(t, "登录失败", diags[0].Expected)
		assert.Equal(t, "登录成功", diags[0].Actual)
	})

	t.Run("absent path fails", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpContains,
			Checks: map[string]any{"data.missing": "anything"},
		}})

		assert.False(t, pass)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "path not found")
	})
}

func TestContainsNoneSentinel(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		want bool
	}{
		{"absent path", `{"code":1}`, "error_code", true},
		{"null value", `{"error_code":null}`, "error_code", true},
		{"empty string", `{"error_code":""}`, "error_code", true},
		{"empty array", `{"errors":[]}`, "errors", true},
		{"empty object", `{"detail":{}}`, "detail", true},
		{"present value", `{"error_code":"E42"}`, "error_code", false},
		{"zero is present", `{"error_code":0}`, "error_code", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, diags := AssertAll(jsonResponse(200, tt.body), []Rule{{
				Op:     OpContains,
				Checks: map[string]any{tt.path: "none"},
			}})

			assert.Equal(t, tt.want, pass)
			require.Len(t, diags, 1)
		})
	}
}

func TestContainsStatusCode(t *testing.T) {
	resp := jsonResponse(201, `{"ok":true}`)

	pass, _ := AssertAll(resp, []Rule{{
		Op:     OpContains,
		Checks: map[string]any{StatusCodeKey: 201},
	}})
	assert.True(t, pass)

	pass, diags := AssertAll(resp, []Rule{{
		Op:     OpContains,
		Checks: map[string]any{StatusCodeKey: 200},
	}})
	assert.False(t, pass)
	require.Len(t, diags, 1)
	assert.Equal(t, 201, diags[0].Actual)
}

func TestEq(t *testing.T) {
	resp := jsonResponse(200, `{"code":1,"msg":"登录成功","ids":[1,2,3],"user":{"name":"demo","age":30}}`)

	t.Run("exact match passes", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"msg": "登录成功"},
		}})
		assert.True(t, pass)
	})

	t.Run("numeric kinds compare by value", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"code": 1},
		}})
		assert.True(t, pass)
	})

	t.Run("trailing star means the array itself", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"ids[*]": []any{1, 2, 3}},
		}})
		assert.True(t, pass)
		require.Len(t, diags, 1)
		// The elements, not the array length.
		assert.Equal(t, []any{float64(1), float64(2), float64(3)}, diags[0].Actual)
	})

	t.Run("strings compare strictly, never numerically", func(t *testing.T) {
		codeResp := jsonResponse(200, `{"error_code":"0000"}`)

		pass, _ := AssertAll(codeResp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"error_code": "0"},
		}})
		assert.False(t, pass)

		pass, _ = AssertAll(codeResp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"error_code": "0000"},
		}})
		assert.True(t, pass)
	})

	t.Run("genuine number absorbs a numeric string", func(t *testing.T) {
		pass, _ := AssertAll(jsonResponse(200, `{"count":"12"}`), []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"count": 12},
		}})
		assert.True(t, pass)
	})

	t.Run("arrays compare element-wise", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"ids": []any{1, 2, 3}},
		}})
		assert.True(t, pass)

		pass, _ = AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"ids": []any{3, 2, 1}},
		}})
		assert.False(t, pass)
	})

	t.Run("maps compare key-wise", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"user": map[string]any{"name": "demo", "age": 30}},
		}})
		assert.True(t, pass)
	})

	t.Run("mismatch reports both values", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"msg": "登录失败"},
		}})

		assert.False(t, pass)
		require.Len(t, diags, 1)
		assert.Equal(t, "登录失败", diags[0].Expected)
		assert.Equal(t, "登录成功", diags[0].Actual)
	})

	t.Run("absent path fails", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpEq,
			Checks: map[string]any{"nope": "x"},
		}})
		assert.False(t, pass)
	})
}

func TestNe(t *testing.T) {
	resp := jsonResponse(200, `{"code":1}`)

	pass, _ := AssertAll(resp, []Rule{{
		Op:     OpNe,
		Checks: map[string]any{"code": 2},
	}})
	assert.True(t, pass)

	pass, _ = AssertAll(resp, []Rule{{
		Op:     OpNe,
		Checks: map[string]any{"code": 1},
	}})
	assert.False(t, pass)
}

func TestNoShortCircuit(t *testing.T) {
	resp := jsonResponse(200, `{"code":1,"msg":"ok"}`)

	pass, diags := AssertAll(resp, []Rule{
		{Op: OpContains, Checks: map[string]any{"msg": "wrong"}},
		{Op: OpEq, Checks: map[string]any{"code": 1}},
		{Op: OpEq, Checks: map[string]any{"code": 9}},
	})

	// All three checks evaluated despite the first failure.
	assert.False(t, pass)
	require.Len(t, diags, 3)
	assert.False(t, diags[0].Passed)
	assert.True(t, diags[1].Passed)
	assert.False(t, diags[2].Passed)
}

func TestSchema(t *testing.T) {
	dir := t.TempDir()
	schema := `{
		"type": "object",
		"required": ["name", "age"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(schema), 0o644))

	resp := jsonResponse(200, `{"user":{"name":"demo","age":30},"bad":{"name":42}}`)

	t.Run("valid document", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:     OpSchema,
			Checks: map[string]any{"user": "user.json"},
		}}, WithBaseDir(dir))
		assert.True(t, pass)
	})

	t.Run("invalid document", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpSchema,
			Checks: map[string]any{"bad": "user.json"},
		}}, WithBaseDir(dir))
		assert.False(t, pass)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "schema validation failed")
	})

	t.Run("missing schema file", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:     OpSchema,
			Checks: map[string]any{"user": "nope.json"},
		}}, WithBaseDir(dir))
		assert.False(t, pass)
		assert.Contains(t, diags[0].Message, "failed to read schema file")
	})
}

func TestDB(t *testing.T) {
	client, err := db.NewClient("sqlite://:memory:")
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Query(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = client.Query(`INSERT INTO users (name) VALUES ('demo')`)
	require.NoError(t, err)

	resp := jsonResponse(200, `{"ok":true}`)

	t.Run("rows found", func(t *testing.T) {
		pass, _ := AssertAll(resp, []Rule{{
			Op:    OpDB,
			Query: `SELECT * FROM users WHERE name = 'demo'`,
		}}, WithDB(client))
		assert.True(t, pass)
	})

	t.Run("no rows", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:    OpDB,
			Query: `SELECT * FROM users WHERE name = 'nobody'`,
		}}, WithDB(client))
		assert.False(t, pass)
		assert.Contains(t, diags[0].Message, "no rows")
	})

	t.Run("no client configured", func(t *testing.T) {
		pass, diags := AssertAll(resp, []Rule{{
			Op:    OpDB,
			Query: `SELECT 1`,
		}})
		assert.False(t, pass)
		assert.Contains(t, diags[0].Message, "no database configured")
	})
}

func TestParseOp(t *testing.T) {
	tests := []struct {
		tag  string
		want Op
	}{
		{"contains", OpContains},
		{"eq", OpEq},
		{"ne", OpNe},
		{"schema", OpSchema},
		{"db", OpDB},
	}
	for _, tt := range tests {
		op, err := ParseOp(tt.tag)
		require.NoError(t, err)
		assert.Equal(t, tt.want, op)
	}

	_, err := ParseOp("gt")
	require.Error(t, err)
	var malformed *MalformedRuleError
	assert.ErrorAs(t, err, &malformed)
}

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, (&Rule{Op: OpContains, Checks: map[string]any{"a": 1}}).Validate())
	assert.Error(t, (&Rule{Op: OpContains}).Validate())
	assert.NoError(t, (&Rule{Op: OpDB, Query: "SELECT 1"}).Validate())
	assert.Error(t, (&Rule{Op: OpDB}).Validate())
}
