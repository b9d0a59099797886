package textproc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// splitFilters are the characters treated as word separators by the tokenizer.
const splitFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// Tokenizer maps words to frequency-ranked integer indices.
// Index 0 is reserved for padding. After Fit the tokenizer is read-only and
// safe for concurrent use.
type Tokenizer struct {
	numWords      int
	documentCount int
	order         []string
	counts        map[string]int
	index         map[string]int
}

// NewTokenizer returns an empty tokenizer that keeps the numWords-1 most
// frequent words when producing sequences.
func NewTokenizer(numWords int) *Tokenizer {
	return &Tokenizer{
		numWords: numWords,
		counts:   make(map[string]int),
		index:    make(map[string]int),
	}
}

// Fit counts words across texts and rebuilds the word index.
func (t *Tokenizer) Fit(texts []string) {
	for _, text := range texts {
		t.documentCount++
		for _, w := range Words(text) {
			if _, ok := t.counts[w]; !ok {
				t.order = append(t.order, w)
			}
			t.counts[w]++
		}
	}
	t.rebuildIndex()
}

func (t *Tokenizer) rebuildIndex() {
	ranked := make([]string, len(t.order))
	copy(ranked, t.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return t.counts[ranked[i]] > t.counts[ranked[j]]
	})
	t.index = make(map[string]int, len(ranked))
	for i, w := range ranked {
		t.index[w] = i + 1
	}
}

// Words splits text into lowercase tokens using the tokenizer filter set.
func Words(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || strings.ContainsRune(splitFilters, r)
	})
}

// TextToSequence converts text to word indices, dropping unknown words and
// words ranked at or beyond numWords.
func (t *Tokenizer) TextToSequence(text string) []int {
	words := Words(text)
	seq := make([]int, 0, len(words))
	for _, w := range words {
		i, ok := t.index[w]
		if !ok {
			continue
		}
		if t.numWords > 0 && i >= t.numWords {
			continue
		}
		seq = append(seq, i)
	}
	return seq
}

// TextsToSequences converts every text with TextToSequence.
func (t *Tokenizer) TextsToSequences(texts []string) [][]int {
	out := make([][]int, len(texts))
	for i, text := range texts {
		out[i] = t.TextToSequence(text)
	}
	return out
}

// Index returns the index of word, or 0 when the word is unknown.
func (t *Tokenizer) Index(word string) int {
	return t.index[word]
}

// NumWords is the vocabulary bound used when producing sequences.
func (t *Tokenizer) NumWords() int { return t.numWords }

// VocabularySize is the number of distinct words seen during Fit.
func (t *Tokenizer) VocabularySize() int { return len(t.order) }

// DocumentCount is the number of texts passed to Fit.
func (t *Tokenizer) DocumentCount() int { return t.documentCount }

type wordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type tokenizerFile struct {
	NumWords      int            `json:"num_words"`
	DocumentCount int            `json:"document_count"`
	WordCounts    []wordCount    `json:"word_counts"`
	WordIndex     map[string]int `json:"word_index"`
}

// Save writes the tokenizer as JSON, replacing path atomically.
func (t *Tokenizer) Save(path string) error {
	file := tokenizerFile{
		NumWords:      t.numWords,
		DocumentCount: t.documentCount,
		WordCounts:    make([]wordCount, 0, len(t.order)),
		WordIndex:     t.index,
	}
	for _, w := range t.order {
		file.WordCounts = append(file.WordCounts, wordCount{Word: w, Count: t.counts[w]})
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal tokenizer: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tokenizer dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tokenizer: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace tokenizer: %w", err)
	}
	return nil
}

// LoadTokenizer reads a tokenizer saved with Save.
func LoadTokenizer(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	var file tokenizerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	if file.WordIndex == nil {
		return nil, errors.New("tokenizer file has no word_index")
	}
	t := NewTokenizer(file.NumWords)
	t.documentCount = file.DocumentCount
	for _, wc := range file.WordCounts {
		t.order = append(t.order, wc.Word)
		t.counts[wc.Word] = wc.Count
	}
	t.index = file.WordIndex
	return t, nil
}
