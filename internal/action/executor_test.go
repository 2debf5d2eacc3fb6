package action

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/casl/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestExecuteCASLDebugPrintsBanner(t *testing.T) {
	var out bytes.Buffer
	exec := NewExecutor(&out, nil, nil)

	err := exec.Execute(context.Background(), protocol.CASLAction{Operation: "debug", Parameters: []string{"x", "second line"}})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, `\/ CASL DEBUG MESSAGE \/`)
	require.Contains(t, text, `/\ CASL DEBUG MESSAGE /\`)
	require.Contains(t, text, "x")
	require.Contains(t, text, "second line")
}

func TestExecuteCASLLookupIgnoresCase(t *testing.T) {
	var out bytes.Buffer
	exec := NewExecutor(&out, nil, nil)

	require.NoError(t, exec.Execute(context.Background(), protocol.CASLAction{Operation: "WARNING", Parameters: []string{"careful"}}))
	require.Contains(t, out.String(), "CASL WARNING MESSAGE")

	out.Reset()
	require.NoError(t, exec.Execute(context.Background(), protocol.CASLAction{Operation: "Error"}))
	require.Contains(t, out.String(), "CASL ERROR MESSAGE")
}

func TestExecuteHelloWorld(t *testing.T) {
	var out bytes.Buffer
	exec := NewExecutor(&out, nil, nil)

	require.NoError(t, exec.Execute(context.Background(), protocol.CASLAction{Operation: "hello world"}))
	require.NoError(t, exec.Execute(context.Background(), protocol.CASLAction{Operation: "Hello World", Parameters: []string{"big", "ignored"}}))
	require.Equal(t, "Hello world\nHello big world\n", out.String())
}

func TestExecuteUnknownCASLOperationHasNoEffect(t *testing.T) {
	var out bytes.Buffer
	exec := NewExecutor(&out, nil, nil)

	err := exec.Execute(context.Background(), protocol.CASLAction{Operation: "nonexistent", Parameters: []string{}})
	require.NoError(t, err)
	require.Empty(t, out.String())
}

func TestExecuteCustomIsNoop(t *testing.T) {
	var out bytes.Buffer
	exec := NewExecutor(&out, nil, nil)

	require.NoError(t, exec.Execute(context.Background(), protocol.CustomAction{}))
	require.Empty(t, out.String())
}

func TestExecuteNilActionFails(t *testing.T) {
	exec := NewExecutor(&bytes.Buffer{}, nil, nil)
	require.Error(t, exec.Execute(context.Background(), nil))
}

func TestExecuteShellActionRunsCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	exec := NewExecutor(&bytes.Buffer{}, nil, nil)

	err := exec.Execute(context.Background(), protocol.ShellAction{Command: "printf done > '" + marker + "'"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)
		return err == nil && string(data) == "done"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExecuteShellActionReportsStartFailure(t *testing.T) {
	exec := NewExecutor(&bytes.Buffer{}, nil, nil)

	err := exec.Execute(context.Background(), protocol.ShellAction{Shell: filepath.Join(t.TempDir(), "no-such-shell"), Command: "true"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "start")
}

func TestRegistryRegisterCustomOperation(t *testing.T) {
	reg := NewRegistry()
	var got []string
	reg.Register("  Record ", func(_ io.Writer, params []string) { got = params })

	op, ok := reg.Lookup("RECORD")
	require.True(t, ok)
	op(nil, []string{"a"})
	require.Equal(t, []string{"a"}, got)
	require.Equal(t, []string{"debug", "error", "hello world", "record", "warning"}, reg.Names())
}
