package textproc

// Pad fits seq to maxLen: shorter sequences are left-padded with zeros and
// longer ones keep their last maxLen entries.
func Pad(seq []int, maxLen int) []int {
	out := make([]int, maxLen)
	if len(seq) >= maxLen {
		copy(out, seq[len(seq)-maxLen:])
		return out
	}
	copy(out[maxLen-len(seq):], seq)
	return out
}

// PadAll applies Pad to every sequence.
func PadAll(seqs [][]int, maxLen int) [][]int {
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = Pad(s, maxLen)
	}
	return out
}

// Preprocess runs the inference path for a single text: Clean, tokenize, pad.
func Preprocess(text string, tok *Tokenizer, maxLen int) []int {
	return Pad(tok.TextToSequence(Clean(text)), maxLen)
}
