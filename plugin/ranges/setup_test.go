package ranges

import (
	"testing"

	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRange(t *testing.T) {
	c := test.CreateTestBed(t, "range 0x9000 0x9fff")
	require.NoError(t, setupRange(c))
	assert.Equal(t, shortaddr.Range{Start: 0x9000, End: 0x9fff}, shortserver.GetConfig(c).Range)

	c = test.CreateTestBed(t, "range 32768 32770")
	require.NoError(t, setupRange(c))
	assert.Equal(t, shortaddr.Range{Start: 0x8000, End: 0x8002}, shortserver.GetConfig(c).Range)

	invalid := []string{
		"",
		"range",
		"range 0x8000",
		"range 0x8000 0x9000 0xa000",
		"range 0x9000 0x8000",
		"range 0x8000 0xfffe",
		"range 0x8000 0xffff",
		"range 0x0001 0x0010",
		"range 0x7fff 0x8010",
		"range foo 0x9000",
		"range 0x8000 bar",
		"range 0x8000 0x9000\nrange 0xa000 0xb000",
	}

	for _, input := range invalid {
		c := test.CreateTestBed(t, input)
		assert.Error(t, setupRange(c), input)
	}
}
