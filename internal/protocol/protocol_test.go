package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeResponseWithError(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"error":"boom","action":{"type":"Custom"}}`))
	require.NoError(t, err)
	require.Equal(t, "boom", resp.ErrorMessage())
	require.Equal(t, CustomAction{}, resp.Action)
}

func TestDecodeResponseCASLAction(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"error":null,"action":{"type":"CASL","operation":"debug","parameters":["x"]}}`))
	require.NoError(t, err)
	require.Empty(t, resp.ErrorMessage())
	require.Equal(t, CASLAction{Operation: "debug", Parameters: []string{"x"}}, resp.Action)
}

func TestDecodeResponseErrorFieldIsOptional(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"action":{"type":"Shell","command":"echo hi"}}`))
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.Equal(t, ShellAction{Command: "echo hi"}, resp.Action)
}

func TestDecodeResponseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not json":         `nope`,
		"missing action":   `{"error":null}`,
		"null action":      `{"action":null}`,
		"missing type":     `{"action":{}}`,
		"unknown type":     `{"action":{"type":"Teleport"}}`,
		"shell no cmd":     `{"action":{"type":"Shell"}}`,
		"casl no op":       `{"action":{"type":"CASL","parameters":[]}}`,
		"wrong value type": `{"action":{"type":"CASL","operation":7}}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(input))
			require.Error(t, err)
			require.Contains(t, err.Error(), "decode response")
		})
	}
}

func TestEncodeActionKeepsDiscriminator(t *testing.T) {
	b, err := EncodeAction(ShellAction{Shell: "/bin/bash", Command: "ls"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"Shell","shell":"/bin/bash","command":"ls"}`, string(b))

	b, err = EncodeAction(CASLAction{Operation: "hello world"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"CASL","operation":"hello world","parameters":[]}`, string(b))

	_, err = EncodeAction(nil)
	require.Error(t, err)
}

func TestEncodePayloadIsOneLine(t *testing.T) {
	b, err := EncodePayload(Payload{Text: "turn on the lights"})
	require.NoError(t, err)
	require.Equal(t, "{\"text\":\"turn on the lights\"}\n", string(b))
}

func TestResponseMarshalRoundTripsThroughDecode(t *testing.T) {
	msg := "nope"
	b, err := Response{Error: &msg, Action: CustomAction{}}.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"nope","action":{"type":"Custom"}}`, string(b))
}

func TestCloneActionCopiesParameters(t *testing.T) {
	original := CASLAction{Operation: "debug", Parameters: []string{"a"}}
	cloned := CloneAction(original).(CASLAction)
	cloned.Parameters[0] = "b"
	require.Equal(t, "a", original.Parameters[0])
}
