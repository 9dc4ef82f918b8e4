package shortaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange(t *testing.T) {
	r := DefaultRange

	assert.Equal(t, 0xfffd-0x8000+1, r.Len())
	assert.NoError(t, r.Validate())
	assert.Equal(t, "0x8000-0xfffd", r.String())

	assert.True(t, r.Contains(RangeStart))
	assert.True(t, r.Contains(RangeEnd))
	assert.False(t, r.Contains(Boundary))
	assert.False(t, r.Contains(Invalid))
	assert.False(t, r.Contains(0x7fff))
}

func TestRangeNext(t *testing.T) {
	r := DefaultRange

	assert.Equal(t, ShortAddr(0x8001), r.Next(RangeStart))
	assert.Equal(t, RangeEnd, r.Next(RangeEnd-1))
	assert.Equal(t, RangeStart, r.Next(RangeEnd), "must wrap instead of landing on the boundary")
	assert.Equal(t, RangeStart, r.Next(Boundary))
	assert.Equal(t, RangeStart, r.Next(0x10))

	small := Range{Start: 0x9000, End: 0x9002}
	assert.Equal(t, 3, small.Len())
	assert.Equal(t, ShortAddr(0x9001), small.Next(0x9000))
	assert.Equal(t, ShortAddr(0x9000), small.Next(0x9002))
}

func TestRangeValidate(t *testing.T) {
	assert.Error(t, Range{Start: 0x9000, End: 0x8000}.Validate())
	assert.Error(t, Range{Start: 0x8000, End: Boundary}.Validate())
	assert.Error(t, Range{Start: 0x8000, End: Invalid}.Validate())
	assert.Error(t, Range{Start: 0x0001, End: 0x0010}.Validate())
	assert.Error(t, Range{Start: 0x7fff, End: 0x8010}.Validate())
	assert.NoError(t, Range{Start: RangeStart, End: RangeEnd}.Validate())
	assert.NoError(t, Range{Start: 0x9000, End: 0x9000}.Validate())
	assert.Equal(t, 0, Range{Start: 0x9000, End: 0x8000}.Len())
}
