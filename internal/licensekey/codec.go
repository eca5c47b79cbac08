// Package licensekey formats, parses and signs license tokens of the form
// PREFIX-TIMESTAMP-RANDOM-SIGNATURE.
package licensekey

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPrefix = "HA-SUB"

	randomBytes     = 8
	signatureLength = 16
)

var ErrMalformed = errors.New("malformed license key")

// Parts are the segments of a structurally valid token.
type Parts struct {
	Timestamp string
	Random    string
	Signature string
}

// Codec issues and checks tokens for one prefix and secret.
type Codec struct {
	prefix   string
	secret   []byte
	segments int
	rand     io.Reader
}

func NewCodec(prefix, secret string) *Codec {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.TrimSuffix(prefix, "-")
	return &Codec{
		prefix:   prefix,
		secret:   []byte(secret),
		segments: strings.Count(prefix, "-") + 4,
		rand:     rand.Reader,
	}
}

func (c *Codec) Prefix() string {
	return c.prefix
}

// Issue builds a signed token for identity stamped with now.
func (c *Codec) Issue(identity string, now time.Time) (string, error) {
	nonce := make([]byte, randomBytes)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	timestamp := strconv.FormatInt(now.Unix(), 10)
	random := hex.EncodeToString(nonce)
	signature := c.Sign(identity, timestamp, random)
	return strings.Join([]string{c.prefix, timestamp, random, signature}, "-"), nil
}

// Sign is the truncated HMAC-SHA256 of identity:timestamp:random.
func (c *Codec) Sign(identity, timestamp, random string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(identity + ":" + timestamp + ":" + random))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// Parse checks the prefix and segment count only.
func (c *Codec) Parse(token string) (Parts, error) {
	if !strings.HasPrefix(token, c.prefix+"-") {
		return Parts{}, fmt.Errorf("%w: missing %s prefix", ErrMalformed, c.prefix)
	}
	segments := strings.Split(token, "-")
	if len(segments) != c.segments {
		return Parts{}, fmt.Errorf("%w: want %d segments, got %d", ErrMalformed, c.segments, len(segments))
	}
	n := len(segments)
	return Parts{
		Timestamp: segments[n-3],
		Random:    segments[n-2],
		Signature: segments[n-1],
	}, nil
}

// Verify recomputes the signature for identity and compares in constant time.
func (c *Codec) Verify(token, identity string) bool {
	parts, err := c.Parse(token)
	if err != nil {
		return false
	}
	expected := c.Sign(identity, parts.Timestamp, parts.Random)
	return hmac.Equal([]byte(expected), []byte(parts.Signature))
}
