package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svindex/internal/errs"
)

func TestDefaultVariableSet(t *testing.T) {
	s := DefaultVariableSet()

	assert.Len(t, s.Names(), 27)

	inverse := s.Inverse()
	assert.ElementsMatch(t, []string{"PERCAP", "QRICH", "MDHSEVAL"}, inverse)

	for _, ind := range s.Indicators() {
		if ind.Name == "PERCAP" {
			assert.True(t, ind.Inverse)
		}
		if ind.Name == "QPOVTY" {
			assert.False(t, ind.Inverse)
		}
	}
}

func TestConfigureExclude(t *testing.T) {
	s := DefaultVariableSet()

	require.NoError(t, s.Configure(nil, []string{"QFEMALE", "MEDAGE"}))

	assert.Len(t, s.Names(), 25)
	assert.NotContains(t, s.Names(), "QFEMALE")
	assert.NotContains(t, s.Names(), "MEDAGE")
}

func TestConfigureInclude(t *testing.T) {
	s := DefaultVariableSet()

	require.NoError(t, s.Configure([]string{"QPOVTY", "PERCAP", "QRENTER"}, nil))

	assert.Equal(t, []string{"PERCAP", "QRENTER", "QPOVTY"}, s.Names())
	assert.Equal(t, []string{"PERCAP"}, s.Inverse())
}

func TestConfigureErrors(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
	}{
		{"both include and exclude", []string{"QPOVTY"}, []string{"QRICH"}},
		{"unknown include name", []string{"NOTAVAR"}, nil},
		{"unknown exclude name", nil, []string{"NOTAVAR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultVariableSet()
			err := s.Configure(tt.include, tt.exclude)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindConfiguration))
		})
	}
}

func TestAddVariable(t *testing.T) {
	s := DefaultVariableSet()

	require.NoError(t, s.Add("QBROADBAND", []string{"B28002_013E"}, []string{"B28002_001E"}, "Percent of households without an internet subscription"))

	assert.Contains(t, s.Names(), "QBROADBAND")
	assert.Contains(t, s.Variables(), "B28002_013E")

	err := s.Add("QPOVTY", []string{"X"}, nil, "")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := DefaultVariableSet()
	require.NoError(t, s.Configure(nil, []string{"QFEMLBR"}))

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	loaded, err := LoadVariableSet(&buf)
	require.NoError(t, err)

	assert.Equal(t, s.Names(), loaded.Names())
	assert.ElementsMatch(t, s.Inverse(), loaded.Inverse())

	// Constant denominators survive the round trip as "use numerator".
	for _, ind := range loaded.Indicators() {
		if ind.Name == "PERCAP" {
			assert.False(t, ind.Ratio())
		}
		if ind.Name == "QPOVTY" {
			assert.Equal(t, []string{"B17021_001E"}, ind.Denominator)
		}
	}
}

func TestLoadVariableSetMissingDocument(t *testing.T) {
	_, err := LoadVariableSet(bytes.NewBufferString("- PERCAP\n"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
}
