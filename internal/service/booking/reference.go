package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	referenceAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength      = 8
	DefaultReferenceTag  = "SF"
	DefaultMaxReferences = 10
)

// ReferenceGenerator produces booking references: a fixed tag followed by
// eight characters drawn uniformly from A-Z and 0-9.
type ReferenceGenerator struct {
	Tag         string
	MaxAttempts int

	rand io.Reader
}

func NewReferenceGenerator(tag string, maxAttempts int) *ReferenceGenerator {
	if tag == "" {
		tag = DefaultReferenceTag
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxReferences
	}

	return &ReferenceGenerator{Tag: tag, MaxAttempts: maxAttempts, rand: rand.Reader}
}

// Candidate draws one reference without checking storage.
func (g *ReferenceGenerator) Candidate() (string, error) {
	const op = "service.booking.ReferenceGenerator.Candidate"

	// 252 is the largest multiple of 36 that fits in a byte; higher bytes are
	// rejected so every character is equally likely.
	const limit = 252

	out := make([]byte, 0, len(g.Tag)+referenceLength)
	out = append(out, g.Tag...)

	buf := make([]byte, referenceLength*2)
	for len(out) < len(g.Tag)+referenceLength {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("%s:%w", op, err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, referenceAlphabet[int(b)%len(referenceAlphabet)])
			if len(out) == len(g.Tag)+referenceLength {
				break
			}
		}
	}

	return string(out), nil
}

// Generate draws candidates until exists reports one unused.
//
// The check is advisory: the unique constraint on the stored reference is the
// authoritative guard against concurrent generators.
//
// Returns:
//   - string: an unused reference.
//   - error: ErrExhaustedRetries after MaxAttempts collisions.
func (g *ReferenceGenerator) Generate(
	ctx context.Context,
	exists func(ctx context.Context, ref string) (bool, error),
) (string, error) {
	const op = "service.booking.ReferenceGenerator.Generate"

	for range g.MaxAttempts {
		ref, err := g.Candidate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("%s:%w", op, err)
		}

		if !taken {
			return ref, nil
		}
	}

	return "", newError(KindExhaustedRetries, "could not allocate a booking reference", nil)
}
