package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "taskflow version "+version)
}

func TestRunPrintsInOrder(t *testing.T) {
	out, err := execute(t, "run", "--tasks", "6", "--workers", "3", "--delay", "1ms", "--jitter", "5ms", "--log-level", "disabled")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	for i, line := range lines {
		require.Equal(t, fmt.Sprintf("%d\t%d", i, i), line)
	}
}

func TestRunFailAt(t *testing.T) {
	out, err := execute(t, "run", "--tasks", "5", "--workers", "2", "--delay", "1ms", "--jitter", "0", "--fail-at", "3", "--log-level", "disabled")
	require.Error(t, err)
	require.True(t, errors.Is(err, errSynthetic))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
}

func TestRunOffload(t *testing.T) {
	for _, kind := range []string{"thread", "cpu"} {
		t.Run(kind, func(t *testing.T) {
			out, err := execute(t, "run", "--tasks", "4", "--workers", "2", "--delay", "1ms", "--jitter", "0", "--offload", kind, "--log-level", "disabled")
			require.NoError(t, err)
			require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
		})
	}
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	_, err := execute(t, "run", "--workers", "0", "--log-level", "disabled")
	require.Error(t, err)

	_, err = execute(t, "run", "--offload", "gpu")
	require.Error(t, err)

	_, err = execute(t, "run", "--log-level", "loud")
	require.Error(t, err)
}
