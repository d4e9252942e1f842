package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsBuildOnStandard(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			r, err := Preset(name)
			require.NoError(t, err)
			assert.Equal(t, name, r.Name)
			assert.Equal(t, 3, r.BoardWidth)
			assert.Equal(t, 3, r.BoardHeight)
			assert.Equal(t, 5, r.HandSize)
			assert.NotNil(t, r.CaptureModifiers)
		})
	}
}

func TestPresetModifiers(t *testing.T) {
	r, err := Preset("combo-plus")
	require.NoError(t, err)
	assert.Equal(t, []CaptureModifier{CapturePlus, CaptureCombo}, r.CaptureModifiers)

	r, err = Preset("three-open")
	require.NoError(t, err)
	assert.Equal(t, VisibilityThreeOpen, r.VisibilityModifier)
	assert.Empty(t, r.CaptureModifiers)

	_, err = Preset("checkers")
	assert.Error(t, err)
}

func TestSelectorReturnsIndependentCopies(t *testing.T) {
	next, err := NewSelector("same")
	require.NoError(t, err)

	a := next()
	a.CaptureModifiers[0] = CaptureReverse

	b := next()
	assert.Equal(t, []CaptureModifier{CaptureSame}, b.CaptureModifiers)
}

func TestAnySelectorPicksKnownPreset(t *testing.T) {
	next, err := NewSelector(Any)
	require.NoError(t, err)

	names := Names()
	for i := 0; i < 20; i++ {
		assert.Contains(t, names, next().Name)
	}
}
