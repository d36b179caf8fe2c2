package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("enr-1", "offer-letters/enr-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	id, path, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "enr-1", id)
	require.Equal(t, "offer-letters/enr-1.pdf", path)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("enr-1", "offer-letters/enr-1.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("enr-1", "offer-letters/enr-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "enr-2"
	_, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, err = other.Parse(token)
	require.Error(t, err)
}
