package xeger

import "math/rand"

// alphaNumAlphabet is the character class alpha-num generators sample from.
const alphaNumAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultAlphaNumBufferSize is the alpha-num generator's default pre-sampled
// tile size (64 KiB). Tests may pass a smaller size to NewAlphaNumGenerator.
const DefaultAlphaNumBufferSize = 64 * 1024

// Generator is the capability every content-producing flavor (Xeger, zeros,
// ones, alpha-num) shares: answer an inclusive byte-range read. Resolution of
// which flavor backs a given file happens once, at rebuild time, in the
// namespace layer above this package.
type Generator interface {
	Read(start, end int64) []byte
}

// ConstantByteGenerator repeats a single byte for the whole file.
type ConstantByteGenerator struct {
	b byte
}

// NewZeroGenerator returns a generator producing the byte 0x30 ('0').
func NewZeroGenerator() *ConstantByteGenerator { return &ConstantByteGenerator{b: '0'} }

// NewOneGenerator returns a generator producing the byte 0x31 ('1').
func NewOneGenerator() *ConstantByteGenerator { return &ConstantByteGenerator{b: '1'} }

func (g *ConstantByteGenerator) Read(start, end int64) []byte {
	if start > end {
		return nil
	}
	n := end - start + 1
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = g.b
	}
	return buf
}

// AlphaNumGenerator pre-samples a fixed tile of random alphanumeric bytes at
// construction and serves every read as a slice of that tile, wrapping
// around it, so repeated reads of the same offset return the same bytes.
type AlphaNumGenerator struct {
	tile []byte
}

// NewAlphaNumGenerator pre-samples a tile of size bytes from [A-Za-z0-9].
func NewAlphaNumGenerator(size int) *AlphaNumGenerator {
	if size <= 0 {
		size = DefaultAlphaNumBufferSize
	}
	tile := make([]byte, size)
	for i := range tile {
		tile[i] = alphaNumAlphabet[rand.Intn(len(alphaNumAlphabet))]
	}
	return &AlphaNumGenerator{tile: tile}
}

func (g *AlphaNumGenerator) Read(start, end int64) []byte {
	if start > end {
		return nil
	}
	n := len(g.tile)
	buf := make([]byte, end-start+1)
	for i := range buf {
		buf[i] = g.tile[(start+int64(i))%int64(n)]
	}
	return buf
}
