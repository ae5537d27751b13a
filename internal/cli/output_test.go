package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data, func(w io.Writer) {
		t.Fatal("text renderer used in JSON mode")
	})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeFailure, "aggregation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "aggregation failed", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("plain value", nil))
	assert.Equal(t, "plain value\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(42, func(w io.Writer) {
		fmt.Fprintln(w, "custom rendering")
	}))
	assert.Equal(t, "custom rendering\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(CodeCommandError, "store unreachable", map[string]string{"driver": "postgres"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E002]: store unreachable")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_ReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"command error", WrapExitError(ExitCommandError, "failed to load config", errors.New("boom")), "E002"},
		{"failure", WrapExitError(ExitFailure, "failed to aggregate", errors.New("boom")), "E001"},
		{"plain error", errors.New("boom"), "E001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, formatter.ReportError(tt.err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.err.Error(), resp.Error.Message)
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitFailure, "failed to record event", inner)

	assert.Equal(t, "failed to record event: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad flag"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("untyped")))
}
