package outwriter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"count": 3}))
	assert.Equal(t, "{\n  \"count\": 3\n}\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, schema.Prefecture{Name: "京都府", Count: 5}))
	assert.Equal(t, "prefecture: 京都府\ncount: 5\n", buf.String())
}

func TestWriteCSVWithHeader(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"a", "b"}, func(w *csv.Writer) error {
			return w.Write([]string{"1", "2"})
		})
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", buf.String())
	})

	t.Run("row error", func(t *testing.T) {
		boom := errors.New("boom")
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"a"}, func(_ *csv.Writer) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestWriteWithFileCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}, "Wrote text")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFormatRequired(t *testing.T) {
	tests := []struct {
		kind     schema.ValueKind
		required float64
		expected string
	}{
		{schema.FlagKind, 1, "○"},
		{schema.CountKind, 4, "≥ 4"},
		{schema.RatioKind, 0.8, "≥ 80%"},
		{schema.RatioKind, 0.7, "≥ 70%"},
		{schema.RatioKind, 0.125, "≥ 12.5%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatRequired(tt.kind, tt.required))
	}
}

func TestFormatWeighted(t *testing.T) {
	assert.Equal(t, "-", formatWeighted(schema.ScoreSummary{}))
	score, maxScore := 4.5, 6.0
	assert.Equal(t, "4.5/6", formatWeighted(schema.ScoreSummary{WeightedScore: &score, MaxWeightedScore: &maxScore}))
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Excellent", formatLabel(80, false))
	assert.Equal(t, "Adequate", formatLabel(79, false))
	assert.Equal(t, "Limited", formatLabel(49, false))
}
