package xeger

import (
	"io"

	"github.com/orcaman/writerseeker"
)

// Sink is the streaming producer's destination: an ordered sequence of byte
// slices appended by a Pattern's expansion. It is backed by an in-memory
// io.Writer/io.Seeker rather than a bespoke slice-of-slices type, so each
// literal append is a real Write call.
type Sink struct {
	ws     writerseeker.WriterSeeker
	length int
}

// NewSink returns an empty sink ready to accept appends.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) append(p []byte) {
	if len(p) == 0 {
		return
	}
	s.ws.Write(p)
	s.length += len(p)
}

// Len reports the number of bytes appended to the sink so far.
func (s *Sink) Len() int { return s.length }

// Bytes materializes everything written to the sink so far.
func (s *Sink) Bytes() []byte {
	if s.length == 0 {
		return nil
	}
	b, err := io.ReadAll(s.ws.Reader())
	if err != nil {
		// writerseeker's Reader is a bytes.Reader over an in-memory buffer;
		// it cannot fail.
		panic("xeger: sink read: " + err.Error())
	}
	return b
}

// Generate performs one emission step: the full expansion of every top-level
// expression in the pattern, appending into sink. It returns the number of
// Sink.append calls made during the step. The Xeger generator does not use
// this count; it goes through step and works from the bytes alone.
func (p *Pattern) Generate(sink *Sink) int {
	n := 0
	for _, e := range p.expressions {
		n += e.generate(sink)
	}
	return n
}

// step runs one emission step of p into a fresh sink and returns the bytes
// produced by that step alone.
func step(p *Pattern) []byte {
	sink := NewSink()
	p.Generate(sink)
	return sink.Bytes()
}
