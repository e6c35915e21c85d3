// Package identifier produces the clinic codes and public tokens that
// identify tenants and disclose follow-ups.
package identifier

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/jwalitptl/followup-api/internal/repository"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

const (
	// MaxAttempts bounds how many fresh identifiers are tried per save.
	MaxAttempts = 5

	clinicCodeBytes  = 4
	publicTokenBytes = 32
)

// Identifier kinds, used in errors and metrics.
const (
	KindClinicCode  = "clinic_code"
	KindPublicToken = "public_token"
)

type Generator struct {
	r       io.Reader
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New returns a generator reading from r. A nil r uses crypto/rand.
func New(r io.Reader, m *metrics.Metrics, log *logger.Logger) *Generator {
	if r == nil {
		r = rand.Reader
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{r: r, metrics: m, logger: log}
}

// ClinicCode returns 8 lowercase hex characters.
func (g *Generator) ClinicCode() (string, error) {
	b, err := g.read(clinicCodeBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PublicToken returns 43 URL-safe base64 characters without padding.
func (g *Generator) PublicToken() (string, error) {
	b, err := g.read(publicTokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (g *Generator) read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(g.r, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// Assign generates a value with gen and hands it to save, retrying with a
// fresh value while save reports repository.ErrDuplicate. Any other error
// is returned as is. After MaxAttempts collisions it fails with an
// IntegrityExhausted error.
func (g *Generator) Assign(ctx context.Context, kind string, gen func() (string, error), save func(value string) error) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		value, err := gen()
		if err != nil {
			return "", apperrors.Internal(err)
		}

		err = save(value)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", err
		}

		lastErr = err
		g.metrics.IdentifierCollision(kind)
		g.logger.Warn("identifier collision", "kind", kind, "attempt", attempt)
	}

	g.metrics.IdentifierExhaustion(kind)
	return "", apperrors.IntegrityExhausted(kind, MaxAttempts, lastErr)
}
