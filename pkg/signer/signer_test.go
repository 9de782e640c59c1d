package signer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/errors"
)

const (
	vectorQuery = "aid=1988&secUid=MS4wLjABAAAA&cursor=0&count=20&is_encryption=1"
	vectorToken = "1hiEqMeEW3WjLyDBLicwUtf4bV5k0Yu6a+vbUutTMjWCsh/PODOZntKFGpQR7YKXFBFEmi+SNbJ9Sj5UGMx2qw=="
)

func TestXTTSignerKnownVector(t *testing.T) {
	s, err := NewXTTSigner()
	require.NoError(t, err)

	params, err := ParseOrdered(vectorQuery)
	require.NoError(t, err)
	require.Equal(t, vectorQuery, params.Encode())

	token, err := s.Sign(params)
	require.NoError(t, err)
	assert.Equal(t, Token(vectorToken), token)
}

func TestXTTSignerDeterministicAndBound(t *testing.T) {
	s, err := NewXTTSigner()
	require.NoError(t, err)

	base := OrderedParams{}.Add("secUid", "abc").Add("cursor", "0").Add("count", "20")
	a, err := s.Sign(base)
	require.NoError(t, err)
	b, err := s.Sign(base)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	next := OrderedParams{}.Add("secUid", "abc").Add("cursor", "20").Add("count", "20")
	c, err := s.Sign(next)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestXTTSignerOpen(t *testing.T) {
	s, err := NewXTTSigner()
	require.NoError(t, err)

	params := OrderedParams{}.Add("secUid", "MS4w/+=").Add("cursor", "120").Add("empty", "")
	token, err := s.Sign(params)
	require.NoError(t, err)

	opened, err := s.Open(token)
	require.NoError(t, err)
	assert.Equal(t, params, opened)

	cursor, ok := opened.Get("cursor")
	assert.True(t, ok)
	assert.Equal(t, "120", cursor)

	_, err = s.Open("not base64!")
	assert.Error(t, err)
	_, err = s.Open(Token("AAAA"))
	assert.Error(t, err)
}

func TestXTTSignerEmptyParams(t *testing.T) {
	s, err := NewXTTSigner()
	require.NoError(t, err)

	_, err = s.Sign(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeSigningFailed, errors.TypeOf(err))
}

func TestNewXTTSignerWithKeyValidation(t *testing.T) {
	_, err := NewXTTSignerWithKey([]byte("short"), []byte(XTTKey))
	assert.Error(t, err)
	_, err = NewXTTSignerWithKey([]byte(XTTKey), []byte("short"))
	assert.Error(t, err)
}

func TestXTTSignerConcurrent(t *testing.T) {
	s, err := NewXTTSigner()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := OrderedParams{}.Add("cursor", fmt.Sprint(i*20))
			token, err := s.Sign(params)
			if !assert.NoError(t, err) {
				return
			}
			opened, err := s.Open(token)
			if assert.NoError(t, err) {
				assert.Equal(t, params, opened)
			}
		}(i)
	}
	wg.Wait()
}

func TestFuncAdapter(t *testing.T) {
	var got OrderedParams
	var s Signer = Func(func(p OrderedParams) (Token, error) {
		got = p
		return "fixed", nil
	})

	token, err := s.Sign(OrderedParams{}.Add("a", "1"))
	require.NoError(t, err)
	assert.Equal(t, Token("fixed"), token)
	assert.Equal(t, "a=1", got.Encode())
}

func TestParseOrderedKeepsOrder(t *testing.T) {
	params, err := ParseOrdered("z=1&a=2&m=%20x")
	require.NoError(t, err)
	assert.Equal(t, OrderedParams{{"z", "1"}, {"a", "2"}, {"m", " x"}}, params)

	empty, err := ParseOrdered("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseOrdered("a=%zz")
	assert.Error(t, err)
}
