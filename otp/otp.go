// Package otp issues and checks the one-time codes that confirm a checkout.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	DefaultLength      = 6
	DefaultTTL         = 420 * time.Second
	DefaultMaxAttempts = 5
)

var (
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrExpired         = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// Code is a stored code and the number of failed attempts against it.
type Code struct {
	Value    string
	Attempts int
}

type Config struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

type Service struct {
	repo   Repository
	config Config
	random io.Reader
}

func NewService(repo Repository, config Config) *Service {
	if config.Length <= 0 {
		config.Length = DefaultLength
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	return &Service{
		repo:   repo,
		config: config,
		random: rand.Reader,
	}
}

func (s *Service) TTL() time.Duration {
	return s.config.TTL
}

// Issue generates a fresh code for subject, replacing any previous one.
func (s *Service) Issue(ctx context.Context, subject string) (string, error) {
	value, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	if err = s.repo.Save(ctx, subject, &Code{Value: value}, s.config.TTL); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}
	return value, nil
}

// Verify consumes the code for subject when it matches. Each mismatch counts
// as an attempt; once MaxAttempts is reached the code can no longer be used.
func (s *Service) Verify(ctx context.Context, subject, value string) error {
	stored, err := s.repo.Get(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}
	if stored == nil {
		return ErrExpired
	}
	if stored.Attempts >= s.config.MaxAttempts {
		return ErrTooManyAttempts
	}

	if !s.wellFormed(value) || subtle.ConstantTimeCompare([]byte(value), []byte(stored.Value)) != 1 {
		attempts, err := s.repo.IncrementAttempts(ctx, subject)
		if err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		if attempts >= s.config.MaxAttempts {
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	if err = s.repo.Delete(ctx, subject); err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	return nil
}

func (s *Service) wellFormed(value string) bool {
	if len(value) != s.config.Length {
		return false
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *Service) generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.config.Length)), nil)
	n, err := rand.Int(s.random, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.config.Length, n), nil
}
