// Package gameid generates tournament identifiers: a UUIDv7 layout encoded as
// a 26-character lowercase Crockford base32 string, so ids sort by the time
// the program was generated.
package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the encoded id length.
const Length = 26

// RandSource supplies the random tail of an id. randutil.Source satisfies it.
type RandSource interface {
	IntN(n int) int
}

// Generator creates ids. A nil RandSource falls back to crypto/rand.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates an id stamped with the current wall clock.
func Generate() string {
	return NewGenerator(nil).GenerateAt(time.Now())
}

// GenerateAt creates an id stamped with now. Engines pass their own clock so
// ids line up with event timestamps under a mock clock.
func (g *Generator) GenerateAt(now time.Time) string {
	return encodeBase32(g.uuidV7(now))
}

func (g *Generator) uuidV7(now time.Time) [16]byte {
	var id [16]byte

	// 48-bit millisecond timestamp, then random bits with version and variant
	ms := now.UnixMilli()
	for i := 0; i < 6; i++ {
		id[i] = byte(ms >> (40 - 8*i))
	}

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.randSource.IntN(256))
		}
	} else if _, err := rand.Read(id[6:]); err != nil {
		// crypto/rand does not fail on supported platforms; keep the time prefix
		// and a zero tail rather than aborting a tournament over an id.
		clear(id[6:])
	}

	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// encodeBase32 encodes 128 bits as 26 five-bit groups, most significant first.
func encodeBase32(data [16]byte) string {
	var b strings.Builder
	b.Grow(Length)

	// Two leading zero bits make 130 bits, so the first character is 0-7.
	var acc uint16
	bits := 2
	for _, octet := range data {
		acc = acc<<8 | uint16(octet)
		bits += 8
		for bits >= 5 {
			bits -= 5
			b.WriteByte(alphabet[(acc>>uint(bits))&0x1f])
		}
	}
	return b.String()
}

// Validate checks that id has the encoded length and alphabet.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("tournament ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("tournament ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
