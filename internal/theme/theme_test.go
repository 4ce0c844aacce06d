package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	doc := []byte(`{
		"name": "tavern",
		"sounds": [
			{"name": "fire", "file": "fire.ogg", "volume": [0.5, 0.8]}
		]
	}`)

	th, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "tavern", th.Name)
	require.Len(t, th.Sounds, 1)

	s := th.Sounds[0]
	assert.False(t, s.Enabled)
	assert.Equal(t, FloatRange{1, 1}, s.Pitch)
	assert.Equal(t, FloatRange{1, 1}, s.Lowpass)
	assert.Equal(t, FloatRange{1, 1}, s.Highpass)
	assert.Equal(t, FloatRange{0, 0}, s.FadeIn)
	assert.Equal(t, CountRange{0, 0}, s.RepeatCount)
	assert.Equal(t, CountRange{0, 0}, s.LoopCount)
	assert.False(t, s.LoopForever)
	assert.Equal(t, "none", s.Reverb)
	assert.Nil(t, s.Trigger)
}

func TestParse_MissingVolume(t *testing.T) {
	doc := []byte(`{"name": "t", "sounds": [{"name": "a", "file": "a.wav"}]}`)
	_, err := Parse(doc)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_InvertedRange(t *testing.T) {
	doc := []byte(`{"name":"t","sounds":[{"name":"a","file":"a.wav","volume":[0.5,0.5],"loop_count":[5,1]}]}`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop_count")
}

func TestParse_DuplicateName(t *testing.T) {
	doc := []byte(`{"name":"t","sounds":[
		{"name":"a","file":"a.wav","volume":[1,1]},
		{"name":"a","file":"b.wav","volume":[1,1]}
	]}`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParse_TriggerAndReverbOverride(t *testing.T) {
	doc := []byte(`{"name":"t","sounds":[
		{"name":"a","file":"a.wav","volume":[1,1],"trigger":"lever","reverb":"forest"}
	]}`)
	th, err := Parse(doc)
	require.NoError(t, err)
	s := th.Sounds[0]
	require.NotNil(t, s.Trigger)
	assert.Equal(t, "lever", *s.Trigger)
	assert.Equal(t, "forest", s.Reverb)
}
