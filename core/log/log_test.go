package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFields(t *testing.T) {
	handler := memory.New()
	l := &log.Logger{Handler: handler, Level: log.DebugLevel}

	ctx := WithFields(context.Background(), log.Fields{"hwaddr": "00:11:22:33:44:55:66:77"})
	ctx = WithFields(ctx, log.Fields{"shortaddr": "0x8001"})

	With(ctx, l).Infof("allocated")
	With(context.Background(), l).Infof("plain")

	require.Len(t, handler.Entries, 2)
	assert.Equal(t, "allocated", handler.Entries[0].Message)
	assert.Equal(t, "00:11:22:33:44:55:66:77", handler.Entries[0].Fields.Get("hwaddr"))
	assert.Equal(t, "0x8001", handler.Entries[0].Fields.Get("shortaddr"))
	assert.Empty(t, handler.Entries[1].Fields)
}

func TestSetup(t *testing.T) {
	defer log.SetHandler(discardHandler())

	path := filepath.Join(t.TempDir(), "nextshort.log")
	closer, err := Setup(Options{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Debugf("hello %s", "world")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"hello world"`)

	_, err = Setup(Options{Level: "not-a-level"})
	assert.Error(t, err)

	_, err = Setup(Options{Format: "xml"})
	assert.Error(t, err)

	closer, err = Setup(Options{Output: "stdout", Format: "text"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}

func discardHandler() log.Handler {
	h, _ := newHandler("discard", os.Stderr)
	return h
}
