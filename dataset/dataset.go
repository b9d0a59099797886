// Package dataset loads the labelled news CSVs and splits them for training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Labels.
const (
	Real = 0
	Fake = 1
)

// Sample is one labelled article.
type Sample struct {
	Title string
	Text  string
	Date  string
	Label int
}

// Content is the text the model sees: title and body joined by a space.
func (s Sample) Content() string {
	return s.Title + " " + s.Text
}

// LoadCSV reads path and labels every row. The file must have a header with
// title and text columns; a date column is optional.
func LoadCSV(path string, label int) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	samples, err := Read(f, label)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return samples, nil
}

// Read parses CSV rows from r.
func Read(r io.Reader, label int) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	titleCol, okTitle := cols["title"]
	textCol, okText := cols["text"]
	if !okTitle || !okText {
		return nil, errors.New("header must contain title and text columns")
	}
	dateCol, hasDate := cols["date"]

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		s := Sample{
			Title: field(rec, titleCol),
			Text:  field(rec, textCol),
			Label: label,
		}
		if hasDate {
			s.Date = field(rec, dateCol)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// Combine concatenates the fake and real samples.
func Combine(fake, genuine []Sample) []Sample {
	out := make([]Sample, 0, len(fake)+len(genuine))
	out = append(out, fake...)
	return append(out, genuine...)
}

// Shuffle permutes samples in place with a seeded generator.
func Shuffle(samples []Sample, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// StratifiedSplit holds out testSize of the samples while keeping the class
// ratio of both parts as close as possible to the whole.
func StratifiedSplit(samples []Sample, testSize float64, seed uint64) (train, test []Sample, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v outside (0,1)", testSize)
	}
	n := len(samples)
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d samples with test size %v", n, testSize)
	}

	byLabel := make(map[int][]int)
	var labels []int
	for i, s := range samples {
		if _, ok := byLabel[s.Label]; !ok {
			labels = append(labels, s.Label)
		}
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}
	sort.Ints(labels)

	quota := allocate(labels, byLabel, nTest, n)
	rng := rand.New(rand.NewPCG(seed, seed))
	for _, l := range labels {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for k, i := range idx {
			if k < quota[l] {
				test = append(test, samples[i])
			} else {
				train = append(train, samples[i])
			}
		}
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// allocate spreads nTest across classes proportionally, handing the
// remainder to the largest fractional shares.
func allocate(labels []int, byLabel map[int][]int, nTest, n int) map[int]int {
	type share struct {
		label int
		frac  float64
	}
	quota := make(map[int]int, len(labels))
	shares := make([]share, 0, len(labels))
	assigned := 0
	for _, l := range labels {
		exact := float64(nTest) * float64(len(byLabel[l])) / float64(n)
		q := int(math.Floor(exact))
		quota[l] = q
		assigned += q
		shares = append(shares, share{label: l, frac: exact - float64(q)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; assigned < nTest; i++ {
		l := shares[i%len(shares)].label
		if quota[l] < len(byLabel[l]) {
			quota[l]++
			assigned++
		}
	}
	return quota
}

// Stats describes a loaded dataset.
type Stats struct {
	Total int
	Fake  int
	Real  int
	From  *time.Time
	To    *time.Time
}

// Describe counts samples per class and finds the publication date range.
// Dates that cannot be parsed are ignored.
func Describe(samples []Sample) Stats {
	st := Stats{Total: len(samples)}
	for _, s := range samples {
		if s.Label == Fake {
			st.Fake++
		} else {
			st.Real++
		}
		d := strings.TrimSpace(s.Date)
		if d == "" {
			continue
		}
		t, err := dateparse.ParseIn(d, time.UTC)
		if err != nil {
			continue
		}
		if st.From == nil || t.Before(*st.From) {
			from := t
			st.From = &from
		}
		if st.To == nil || t.After(*st.To) {
			to := t
			st.To = &to
		}
	}
	return st
}
