package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	req, err := Decode([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`))
	require.NoError(t, err)
	require.Equal(t, "tools/list", req.Method)
	require.Equal(t, json.RawMessage("7"), req.ID)
	require.False(t, req.IsNotification())

	req, err = Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	require.True(t, req.IsNotification())

	req, err = Decode([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`))
	require.NoError(t, err)
	require.False(t, req.IsNotification())
	require.Equal(t, json.RawMessage("null"), req.ID)

	req, err = Decode([]byte(`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"x"}}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"x"}`, string(req.Params))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidRequest)

	for _, line := range []string{
		`[1,2]`,
		`"hello"`,
		`{"jsonrpc":"2.0","id":1}`,
		`{"jsonrpc":"2.0","id":{"a":1},"method":"ping"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"} {"x":1}`,
	} {
		_, err := Decode([]byte(line))
		require.ErrorIs(t, err, ErrInvalidRequest, line)
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode(NewResult(json.RawMessage("1"), map[string]any{}))
	require.NoError(t, err)
	require.Equal(t, "{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{}}\n", string(b))

	b, err = Encode(NewError(nil, ParseError, "Parse error", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(b))

	b, err = Encode(NewError(json.RawMessage(`"x"`), OperationError, "boom", map[string]any{"code": "IO_FAILED"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":"x","error":{"code":-32000,"message":"boom","data":{"code":"IO_FAILED"}}}`, string(b))
}
