package ingest

import (
	"testing"

	"github.com/fenwicklabs/terramesh/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHit(t *testing.T) {
	rec, ok := Parse("HIT|P: 1.5,-2,3.25|N: 0,1,0")
	require.True(t, ok)
	require.NotNil(t, rec.Hit)
	assert.Nil(t, rec.Miss)
	assert.Equal(t, geo.Vec3{X: 1.5, Y: -2, Z: 3.25}, rec.Hit.Position)
	assert.Equal(t, geo.Vec3{X: 0, Y: 1, Z: 0}, rec.Hit.Normal)
}

func TestParseHitNoWhitespace(t *testing.T) {
	rec, ok := Parse("HIT|P:1,2,3|N:0,1,0")
	require.True(t, ok)
	assert.Equal(t, geo.Vec3{X: 1, Y: 2, Z: 3}, rec.Hit.Position)
}

func TestParseMiss(t *testing.T) {
	rec, ok := Parse("MISS|S: 0,0,0|E: 10,0,0")
	require.True(t, ok)
	require.NotNil(t, rec.Miss)
	assert.Equal(t, geo.Vec3{X: 0, Y: 0, Z: 0}, rec.Miss.Start)
	assert.Equal(t, geo.Vec3{X: 10, Y: 0, Z: 0}, rec.Miss.End)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",
		"not a record",
		"hit|P: 1,2,3|N: 0,1,0", // lowercase tag, must be case-sensitive
		"HIT|P: 1,2|N: 0,1,0",   // missing a coordinate
		"HIT|P: 1,2,3e5|N: 0,1,0",
	} {
		_, ok := Parse(line)
		assert.False(t, ok, "expected %q to be rejected", line)
	}
}

func TestParseSkipsFragment(t *testing.T) {
	_, ok := Parse(FragmentPrefix + "HIT|P: 1,2,3|N: 0,1,0")
	assert.False(t, ok)
}

func TestParseTrimsCarriageReturn(t *testing.T) {
	rec, ok := Parse("HIT|P: 1,2,3|N: 0,1,0\r")
	require.True(t, ok)
	assert.Equal(t, geo.Vec3{X: 1, Y: 2, Z: 3}, rec.Hit.Position)
}
