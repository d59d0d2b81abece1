package xeger

import "log"

// defaultMaxRandom is used when a Config leaves MaxRandom unset (zero).
const defaultMaxRandom = 10

// Config parameterizes a XegerGenerator. Prefix and Suffix may be empty
// (meaning the file has none); Filler and Padder fall back to a literal "0"
// pattern when left empty, per the empty-pattern normalization rule.
type Config struct {
	Size      int64
	Prefix    string
	Filler    string
	Padder    string
	Suffix    string
	MaxRandom int
	NewRNG    RNGFactory
}

// XegerGenerator answers byte-range reads over a virtual file laid out as
// prefix, repeating filler, a short padder residue, then suffix. Prefix and
// suffix are materialized eagerly; filler and padder are expanded lazily, one
// emission step at a time, as reads require them.
//
// Not safe for concurrent use: the sequential-read fast path (remainder,
// endLastRead) is mutated by Read and must be serialized by the caller.
type XegerGenerator struct {
	size   int64
	prefix []byte
	suffix []byte
	filler *Pattern
	padder *Pattern

	remainder   []byte
	endLastRead int64 // absolute offset of the last byte returned; -1 before any read
}

// NewXegerGenerator parses cfg's patterns and materializes the prefix/suffix
// regions. Empty Filler/Padder default to a literal "0"; empty Prefix/Suffix
// mean the file has none of that layer. A size that makes prefix+suffix
// exceed Size is only a warning: truncation happens at read time.
func NewXegerGenerator(cfg Config) (*XegerGenerator, error) {
	maxRandom := cfg.MaxRandom
	if maxRandom == 0 {
		maxRandom = defaultMaxRandom
	}
	newRNG := cfg.NewRNG
	if newRNG == nil {
		newRNG = NewBoundedRNG
	}

	filler := cfg.Filler
	if filler == "" {
		log.Print("xeger: empty filler pattern, defaulting to \"0\"")
		filler = "0"
	}
	padder := cfg.Padder
	if padder == "" {
		log.Print("xeger: empty padder pattern, defaulting to \"0\"")
		padder = "0"
	}

	fillerPat, err := Parse(filler, maxRandom, newRNG)
	if err != nil {
		return nil, err
	}
	padderPat, err := Parse(padder, maxRandom, newRNG)
	if err != nil {
		return nil, err
	}

	g := &XegerGenerator{
		size:        cfg.Size,
		filler:      fillerPat,
		padder:      padderPat,
		endLastRead: -1,
	}

	if cfg.Prefix != "" {
		prefixPat, err := Parse(cfg.Prefix, maxRandom, newRNG)
		if err != nil {
			return nil, err
		}
		g.prefix = step(prefixPat)
	}
	if cfg.Suffix != "" {
		suffixPat, err := Parse(cfg.Suffix, maxRandom, newRNG)
		if err != nil {
			return nil, err
		}
		g.suffix = step(suffixPat)
	}

	if int64(len(g.prefix)+len(g.suffix)) > g.size {
		log.Printf("xeger: prefix+suffix (%d bytes) exceeds file size %d; truncating at read time", len(g.prefix)+len(g.suffix), g.size)
	}

	return g, nil
}

// Read returns the bytes in the inclusive range [start, end], clamped to the
// file's bounds. It is the sole mutator of the sequential-read fast path.
func (g *XegerGenerator) Read(start, end int64) []byte {
	if end > g.size-1 {
		end = g.size - 1
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		return nil
	}

	sequential := start == g.endLastRead+1
	defer func() { g.endLastRead = end }()

	prefixLen := int64(len(g.prefix))
	suffixStart := g.size - int64(len(g.suffix))

	if prefixLen > 0 && start < prefixLen {
		g.remainder = nil
		sliceEnd := end
		if sliceEnd > prefixLen-1 {
			sliceEnd = prefixLen - 1
		}
		return append([]byte(nil), g.prefix[start:sliceEnd+1]...)
	}

	if len(g.suffix) > 0 && start >= suffixStart {
		g.remainder = nil
		s0 := start - suffixStart
		s1 := end - suffixStart
		return append([]byte(nil), g.suffix[s0:s1+1]...)
	}

	need := end - start + 1
	var result []byte
	genPos := start

	if sequential && len(g.remainder) > 0 {
		result = append(result, g.remainder...)
		genPos = start + int64(len(g.remainder))
	}
	g.remainder = nil

	bodyNeed := need - int64(len(result))
	if bodyNeed <= 0 {
		if int64(len(result)) > need {
			result = result[:need]
		}
		return result
	}

	reservedSuffixLen := int64(0)
	if len(g.suffix) > 0 && end >= suffixStart {
		reservedSuffixLen = end - suffixStart + 1
	}
	fillNeed := bodyNeed - reservedSuffixLen

	if fillNeed > 0 {
		fillBytes, rem := g.generateBody(genPos, fillNeed, suffixStart)
		result = append(result, fillBytes...)
		g.remainder = rem
	}
	if reservedSuffixLen > 0 {
		result = append(result, g.suffix[:reservedSuffixLen]...)
	}

	return result
}

// generateBody expands the filler pattern, one emission step at a time,
// starting at absolute offset pos, until need bytes are produced. Whenever a
// step would overrun suffixStart, that whole step is discarded and the
// residual room (necessarily smaller than one step) is filled with padder
// emissions truncated byte-exact to fit — which always lands exactly on
// suffixStart, so padder never itself overruns into the suffix.
//
// If the bytes produced (filler, or padder up to suffixStart) exceed need,
// the excess becomes the returned remainder for the next sequential read.
func (g *XegerGenerator) generateBody(pos, need, suffixStart int64) (out, remainder []byte) {
	var buf []byte
	var produced int64

	for produced < need {
		room := suffixStart - (pos + produced)
		if room <= 0 {
			break
		}
		chunk := step(g.filler)
		if int64(len(chunk)) > room {
			pad := generateExact(g.padder, room)
			buf = append(buf, pad...)
			produced += int64(len(pad))
			break
		}
		buf = append(buf, chunk...)
		produced += int64(len(chunk))
	}

	if produced > need {
		return buf[:need], append([]byte(nil), buf[need:]...)
	}
	return buf, nil
}

// generateExact expands pattern in whole emission steps until at least n
// bytes accumulate, then truncates to exactly n.
func generateExact(pattern *Pattern, n int64) []byte {
	var buf []byte
	for int64(len(buf)) < n {
		buf = append(buf, step(pattern)...)
	}
	return buf[:n]
}
