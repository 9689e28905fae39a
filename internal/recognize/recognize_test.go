package recognize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "eng", want: []string{"eng"}},
		{in: "eng+deu", want: []string{"eng", "deu"}},
		{in: " eng + fra +", want: []string{"eng", "fra"}},
		{in: "", want: []string{DefaultLanguage}},
		{in: "+", want: []string{DefaultLanguage}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLanguages(tt.in))
		})
	}
}

func TestResolveTessdata(t *testing.T) {
	assert.Equal(t, "/opt/tessdata", ResolveTessdata("/opt/tessdata"))

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "", ResolveTessdata(""))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "tessdata"), 0o755))
	assert.Equal(t, "tessdata", ResolveTessdata(""))
}

func TestHasOSD(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasOSD(""))
	assert.False(t, HasOSD(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "osd.traineddata"), []byte("x"), 0o600))
	assert.True(t, HasOSD(dir))
}

func TestGate(t *testing.T) {
	low := gate(&Result{Text: "n0ise", Confidence: 31, Words: 4}, DefaultMinConfidence)
	assert.True(t, low.Discarded)
	assert.Empty(t, low.Text)

	high := gate(&Result{Text: "Invoice 42", Confidence: 91, Words: 2}, DefaultMinConfidence)
	assert.False(t, high.Discarded)
	assert.Equal(t, "Invoice 42", high.Text)

	blank := gate(&Result{}, DefaultMinConfidence)
	assert.False(t, blank.Discarded)

	disabled := gate(&Result{Text: "x", Confidence: 1, Words: 1}, -1)
	assert.False(t, disabled.Discarded)
}
