package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/config"
)

func TestServeSession(t *testing.T) {
	cfg := config.Default()
	cfg.BasePath = t.TempDir()

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_spreadsheet","arguments":{"filename":"a.csv","format":"csv","headers":["x","y"]}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"read_spreadsheet","arguments":{"filename":"a.csv"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"read_spreadsheet","arguments":{"filename":"../a.csv"}}}`,
	}, "\n")

	var out, logs bytes.Buffer
	require.NoError(t, serve(context.Background(), cfg, strings.NewReader(in), &out, &logs))

	var responses []map[string]any
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		responses = append(responses, m)
	}
	require.Len(t, responses, 4)
	for i, resp := range responses[:3] {
		require.NotContains(t, resp, "error", "response %d", i)
	}
	require.Contains(t, responses[2]["result"].(map[string]any)["content"].([]any)[0].(map[string]any)["text"], `[["x","y"]]`)

	errObj := responses[3]["error"].(map[string]any)
	require.EqualValues(t, -32000, errObj["code"])
	require.Equal(t, "PATH_TRAVERSAL", errObj["data"].(map[string]any)["code"])

	require.Contains(t, logs.String(), "server bootstrap configured")
	require.NotContains(t, out.String(), "bootstrap")
}

func TestServeReadOnlyHidesWriters(t *testing.T) {
	cfg := config.Default()
	cfg.BasePath = t.TempDir()
	cfg.ReadOnly = true

	var out, logs bytes.Buffer
	in := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	require.NoError(t, serve(context.Background(), cfg, strings.NewReader(in), &out, &logs))

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Result.Tools, 4)
}

func TestRootCmdRejectsBadLogFormat(t *testing.T) {
	t.Setenv("SPREADSHEET_BASE_PATH", t.TempDir())
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--log-format", "xml"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported log format")
}
