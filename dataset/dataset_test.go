package dataset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeCSV = `title,text,subject,date
"Aliens land, officials say","Shocking ""report"" claims",News,"December 31, 2017"
Miracle cure,Doctors hate it,politics,2016-03-01
`

func TestReadParsesRows(t *testing.T) {
	samples, err := Read(strings.NewReader(fakeCSV), Fake)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "Aliens land, officials say", samples[0].Title)
	assert.Equal(t, `Shocking "report" claims`, samples[0].Text)
	assert.Equal(t, "December 31, 2017", samples[0].Date)
	assert.Equal(t, Fake, samples[1].Label)
	assert.Equal(t, "Miracle cure Doctors hate it", samples[1].Content())
}

func TestReadRequiresColumns(t *testing.T) {
	_, err := Read(strings.NewReader("headline,body\na,b\n"), Real)
	assert.Error(t, err)

	_, err = Read(strings.NewReader(""), Real)
	assert.Error(t, err)
}

func TestReadWithoutDateColumn(t *testing.T) {
	samples, err := Read(strings.NewReader("Text,Title\nbody,head\n"), Real)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "head", samples[0].Title)
	assert.Equal(t, "body", samples[0].Text)
	assert.Empty(t, samples[0].Date)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), Fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.csv")
	require.NoError(t, os.WriteFile(path, []byte(fakeCSV), 0o644))
	samples, err := LoadCSV(path, Fake)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func makeSamples(fake, genuine int) []Sample {
	var out []Sample
	for i := 0; i < fake; i++ {
		out = append(out, Sample{Title: "f", Label: Fake})
	}
	for i := 0; i < genuine; i++ {
		out = append(out, Sample{Title: "r", Label: Real})
	}
	return out
}

func TestShuffleIsDeterministic(t *testing.T) {
	a := makeSamples(10, 10)
	for i := range a {
		a[i].Text = string(rune('a' + i))
	}
	b := append([]Sample(nil), a...)
	Shuffle(a, 42)
	Shuffle(b, 42)
	assert.Equal(t, a, b)
}

func TestStratifiedSplitPreservesRatio(t *testing.T) {
	samples := makeSamples(60, 40)
	train, test, err := StratifiedSplit(samples, 0.2, 42)
	require.NoError(t, err)
	require.Len(t, test, 20)
	require.Len(t, train, 80)

	assert.Equal(t, 12, Describe(test).Fake)
	assert.Equal(t, 8, Describe(test).Real)
	assert.Equal(t, 48, Describe(train).Fake)
}

func TestStratifiedSplitRoundsUp(t *testing.T) {
	samples := makeSamples(7, 4)
	train, test, err := StratifiedSplit(samples, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, test, 3)
	assert.Len(t, train, 8)
	st := Describe(test)
	assert.Equal(t, 2, st.Fake)
	assert.Equal(t, 1, st.Real)
}

func TestStratifiedSplitRejectsBadInput(t *testing.T) {
	_, _, err := StratifiedSplit(makeSamples(1, 0), 0.2, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit(makeSamples(5, 5), 1.5, 1)
	assert.Error(t, err)
}

func TestDescribeDateRange(t *testing.T) {
	samples := []Sample{
		{Label: Fake, Date: "December 31, 2017"},
		{Label: Real, Date: "2016-03-01"},
		{Label: Real, Date: "??"},
		{Label: Real},
	}
	st := Describe(samples)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Fake)
	assert.Equal(t, 3, st.Real)
	require.NotNil(t, st.From)
	require.NotNil(t, st.To)
	assert.Equal(t, time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC), *st.From)
	assert.Equal(t, time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC), *st.To)
}

func TestCombine(t *testing.T) {
	all := Combine(makeSamples(2, 0), makeSamples(0, 3))
	assert.Len(t, all, 5)
	assert.Equal(t, Fake, all[0].Label)
	assert.Equal(t, Real, all[4].Label)
}
