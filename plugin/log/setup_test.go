package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	shortLog "github.com/nextdhcp/nextshort/core/log"
	"github.com/nextdhcp/nextshort/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogging(t *testing.T) {
	cases := []struct {
		input    string
		expected shortLog.Options
	}{
		{"log", shortLog.Options{}},
		{"log debug", shortLog.Options{Level: "debug"}},
		{"log WARN", shortLog.Options{Level: "WARN"}},
		{
			`log {
				level error
				format json
				output stdout
			}`,
			shortLog.Options{Level: "error", Format: "json", Output: "stdout"},
		},
		{
			`log debug {
				format text
			}`,
			shortLog.Options{Level: "debug", Format: "text"},
		},
	}

	for _, c := range cases {
		ctrl := test.CreateTestBed(t, c.input)
		opts, err := parseLogging(ctrl)
		require.NoError(t, err, c.input)
		assert.Equal(t, c.expected, opts, c.input)
	}

	invalid := []string{
		"",
		"log foo",
		"log debug info",
		"log\nlog",
		"log {\n level\n}",
		"log {\n format a b\n}",
		"log {\n unknown value\n}",
	}

	for _, input := range invalid {
		ctrl := test.CreateTestBed(t, input)
		_, err := parseLogging(ctrl)
		assert.Error(t, err, input)
	}
}

func TestSetupLogging(t *testing.T) {
	defer shortLog.Setup(shortLog.Options{Format: "discard"}) // nolint:errcheck

	path := filepath.Join(t.TempDir(), "nextshort.log")

	ctrl := test.CreateTestBed(t, `log debug {
		format text
		output `+path+`
	}`)
	require.NoError(t, setupLogging(ctrl))

	log.Debugf("hello from the log directive")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from the log directive")

	ctrl = test.CreateTestBed(t, "log {\n format unknown\n}")
	assert.Error(t, setupLogging(ctrl))
}
