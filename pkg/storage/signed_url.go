package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates signed download tokens for stored documents.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a signed token referencing the document and its stored path.
func (s *SignedURLSigner) Generate(documentID, relPath string) (string, time.Time, error) {
	if documentID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("documentID and relPath required")
	}
	if strings.Contains(documentID, ".") {
		return "", time.Time{}, fmt.Errorf("documentID must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{documentID, ts, encodedPath, s.sign(documentID, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded document ID and path.
func (s *SignedURLSigner) Parse(token string) (documentID, relPath string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("invalid token format")
	}
	documentID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(documentID, ts, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid timestamp")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", "", fmt.Errorf("token expired")
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", fmt.Errorf("decode path: %w", err)
	}
	return documentID, string(rawPath), nil
}

func (s *SignedURLSigner) sign(documentID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(documentID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
