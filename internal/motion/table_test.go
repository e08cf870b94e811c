package motion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motion.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable_PreservesFileOrder(t *testing.T) {
	path := writeTable(t, "10.0,0.0,90.0,5.0\n20.0,5.0,45.0,0.0,my_label\n")

	combos, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, combos, 2)

	assert.Equal(t, [4]float64{10, 0, 90, 5}, combos[0].Positions)
	assert.Equal(t, 0, combos[0].Index)
	assert.Empty(t, combos[0].Label)

	assert.Equal(t, [4]float64{20, 5, 45, 0}, combos[1].Positions)
	assert.Equal(t, 1, combos[1].Index)
	assert.Equal(t, "my_label", combos[1].Label)
}

func TestLoadTable_SkipsBlankAndCommentLines(t *testing.T) {
	path := writeTable(t, "# header comment\n\n1,2,3,4\n   \n# trailing\n5,6,7,8\n")

	combos, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, combos, 2)
	// Indexes count combos, not file lines.
	assert.Equal(t, 0, combos[0].Index)
	assert.Equal(t, 1, combos[1].Index)
}

func TestLoadTable_MalformedRowIsFatal(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"non-numeric field", "abc,0,0,0"},
		{"too few fields", "1,2,3"},
		{"too many fields", "1,2,3,4,label,extra"},
		{"empty label", "1,2,3,4,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTable(t, "0,0,0,0\n"+tt.row+"\n")

			combos, err := LoadTable(path)
			require.Error(t, err)
			assert.Nil(t, combos)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 2, pe.Line)
			assert.Equal(t, tt.row, pe.Raw)
		})
	}
}

func TestLoadTable_FieldWhitespaceTolerated(t *testing.T) {
	path := writeTable(t, " 1.5 , -2.0 ,3 ,4 , HH basis \n")

	combos, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, [4]float64{1.5, -2, 3, 4}, combos[0].Positions)
	assert.Equal(t, "HH basis", combos[0].Label)
}

func TestCombo_FileName(t *testing.T) {
	tests := []struct {
		name  string
		combo Combo
		want  string
	}{
		{"index fallback", Combo{Index: 0}, "combo000.csv"},
		{"index fallback two digits", Combo{Index: 42}, "combo042.csv"},
		{"label", Combo{Index: 3, Label: "my_label"}, "my_label.csv"},
		{"label with spaces and dots", Combo{Label: "HV 22.5"}, "HV_22-5.csv"},
		{"label with path separators", Combo{Label: "a/b\\c"}, "a-b-c.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.combo.FileName())
		})
	}
}

func TestCombo_ID(t *testing.T) {
	assert.Equal(t, "combo007", Combo{Index: 7}.ID())
	assert.Equal(t, "hh", Combo{Index: 7, Label: "hh"}.ID())
}
