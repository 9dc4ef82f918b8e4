package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/leasefile"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLeases = []lease.Lease{
	{
		HwAddr:    shortaddr.MustParseHardwareAddr("00:00:00:00:00:00:00:02"),
		ShortAddr: 0x9000,
		LastSeen:  time.Unix(1700000000, 0),
	},
	{
		HwAddr:    shortaddr.MustParseHardwareAddr("00:00:00:00:00:00:00:01"),
		ShortAddr: 0x8001,
		LastSeen:  time.Unix(1700000000, 0),
	},
}

func TestPrintLeases(t *testing.T) {
	var buf bytes.Buffer
	printLeases(&buf, testLeases, time.Unix(1700000060, 0))

	out := buf.String()
	first := strings.Index(out, "0x8001")
	second := strings.Index(out, "0x9000")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)

	assert.Contains(t, out, "00:00:00:00:00:00:00:01")
	assert.Contains(t, out, "2023-11-14T22:13:20Z")
	assert.Contains(t, out, "1 minute ago")
	assert.Contains(t, out, "2 leases\n")

	// the input is not reordered
	assert.Equal(t, shortaddr.ShortAddr(0x9000), testLeases[0].ShortAddr)
}

func TestLeasesCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases")
	require.NoError(t, leasefile.WriteFile(path, testLeases))

	var buf bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"leases", "--file", path})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "0x8001")
	assert.Contains(t, buf.String(), "0x9000")

	root = NewRootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"leases", "--file", filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, root.Execute())

	root = NewRootCommand()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"leases"})
	assert.Error(t, root.Execute())
}

func TestValidateCommand(t *testing.T) {
	var buf bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"validate", "--conf", filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, root.Execute())
}
