// Package signer produces the per-request x-tt-params token the listing
// endpoint requires.
//
// The token is the AES-128-CBC encryption of the exact query string,
// so every request must be signed again whenever cursor or count change.
package signer

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"ttscraper/pkg/errors"
)

// Token is an opaque signature string sent in the x-tt-params header
type Token string

// Param is one key/value pair of an ordered query
type Param struct {
	Key   string
	Value string
}

// OrderedParams is a query whose encoding preserves insertion order
type OrderedParams []Param

// Add appends a key/value pair and returns the extended set
func (p OrderedParams) Add(key, value string) OrderedParams {
	return append(p, Param{Key: key, Value: value})
}

// Get returns the first value stored under key
func (p OrderedParams) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode renders the params as key=value pairs joined by '&' in insertion order
func (p OrderedParams) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// ParseOrdered parses an encoded query keeping the order of its pairs
func ParseOrdered(query string) (OrderedParams, error) {
	var params OrderedParams
	if query == "" {
		return params, nil
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		params = params.Add(key, value)
	}
	return params, nil
}

// Signer produces a token bound to one exact parameter set
type Signer interface {
	Sign(params OrderedParams) (Token, error)
}

// Func adapts a plain function to the Signer interface
type Func func(params OrderedParams) (Token, error)

func (f Func) Sign(params OrderedParams) (Token, error) {
	return f(params)
}

// XTTKey is the AES key and IV used by the web app for x-tt-params
const XTTKey = "webapp1.0+202106"

// XTTSigner implements the x-tt-params scheme.
// It is safe for concurrent use.
type XTTSigner struct {
	mu    sync.Mutex
	block cipher.Block
	iv    []byte
}

// NewXTTSigner builds a signer with the web app key
func NewXTTSigner() (*XTTSigner, error) {
	return NewXTTSignerWithKey([]byte(XTTKey), []byte(XTTKey))
}

// NewXTTSignerWithKey builds a signer with an explicit key and IV
func NewXTTSignerWithKey(key, iv []byte) (*XTTSigner, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	return &XTTSigner{block: block, iv: append([]byte(nil), iv...)}, nil
}

// Sign encrypts the encoded params and returns the base64 token
func (s *XTTSigner) Sign(params OrderedParams) (Token, error) {
	if len(params) == 0 {
		return "", errors.New(errors.ErrorTypeSigningFailed, 0, "no parameters to sign")
	}

	plain := pkcs7Pad([]byte(params.Encode()), s.block.BlockSize())
	out := make([]byte, len(plain))

	s.mu.Lock()
	cipher.NewCBCEncrypter(s.block, s.iv).CryptBlocks(out, plain)
	s.mu.Unlock()

	return Token(base64.StdEncoding.EncodeToString(out)), nil
}

// Open decrypts a token back into the query it was produced from
func (s *XTTSigner) Open(token Token) (OrderedParams, error) {
	raw, err := base64.StdEncoding.DecodeString(string(token))
	if err != nil {
		return nil, fmt.Errorf("invalid token encoding: %w", err)
	}
	size := s.block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return nil, fmt.Errorf("invalid token length %d", len(raw))
	}

	plain := make([]byte, len(raw))
	s.mu.Lock()
	cipher.NewCBCDecrypter(s.block, s.iv).CryptBlocks(plain, raw)
	s.mu.Unlock()

	plain, err = pkcs7Unpad(plain, size)
	if err != nil {
		return nil, err
	}
	return ParseOrdered(string(plain))
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
