package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedTable = "../testutil/fixtures/nested.yaml"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nestq", cmd.Use)
	assert.Contains(t, cmd.Long, "JSON_VALUE")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"plan", "run", "validate", "paths", "export", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	testCases := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "verbose", shorthand: "v", defValue: "false"},
		{name: "format", defValue: "text"},
		{name: "typing", defValue: "string"},
		{name: "approx-count-distinct", defValue: "false"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tc.name)
			require.NotNil(t, flag)
			assert.Equal(t, tc.shorthand, flag.Shorthand)
			assert.Equal(t, tc.defValue, flag.DefValue)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	testCases := []struct {
		command string
		flag    string
	}{
		{command: "plan", flag: "table"},
		{command: "run", flag: "table"},
		{command: "run", flag: "db"},
		{command: "validate", flag: "table"},
		{command: "validate", flag: "fail-fast"},
		{command: "paths", flag: "column"},
		{command: "test", flag: "update"},
		{command: "test", flag: "filter"},
		{command: "test", flag: "golden"},
	}

	for _, tc := range testCases {
		t.Run(tc.command+"/"+tc.flag, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tc.command})
			require.NoError(t, err)
			assert.NotNil(t, sub.Flags().Lookup(tc.flag))
		})
	}
}

func TestRootValidation(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "invalid format",
			args:    []string{"--format", "xml", "paths", nestedTable},
			wantErr: `invalid format "xml"`,
		},
		{
			name:    "invalid typing",
			args:    []string{"--typing", "psychic", "paths", nestedTable},
			wantErr: "invalid --typing",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRootOptions_Logger(t *testing.T) {
	opts := &RootOptions{}
	assert.NotNil(t, opts.Logger(), "commands run without the root still get a logger")

	planOpts, err := (&RootOptions{Typing: "natural"}).plannerOptions()
	require.NoError(t, err)
	assert.Len(t, planOpts, 3)

	_, err = (&RootOptions{Typing: "bogus"}).plannerOptions()
	assert.Error(t, err)
}
