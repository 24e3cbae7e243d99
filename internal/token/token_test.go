package token

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "ivan.horvat", expected: "ivan.horvat"},
		{name: "mixed case", input: "Ivan.Horvat", expected: "ivan.horvat"},
		{name: "surrounding whitespace", input: "  ivan.horvat\t\n", expected: "ivan.horvat"},
		{name: "school mail suffix", input: "ivan.horvat@skole.hr", expected: "ivan.horvat"},
		{name: "suffix with case and whitespace", input: " IVAN.HORVAT@SKOLE.HR ", expected: "ivan.horvat"},
		{name: "other domain kept", input: "ivan@example.com", expected: "ivan@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Derive("ivan", "secret"), Derive("ivan", "secret"))
	})

	t.Run("username normalization yields the same token", func(t *testing.T) {
		t.Parallel()
		base := Derive("ivan.horvat", "secret")
		assert.Equal(t, base, Derive("  Ivan.Horvat ", "secret"))
		assert.Equal(t, base, Derive("IVAN.HORVAT@skole.hr", "secret"))
	})

	t.Run("secret is not normalized", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, Derive("ivan", "secret"), Derive("ivan", "Secret"))
		assert.NotEqual(t, Derive("ivan", "secret"), Derive("ivan", " secret"))
	})

	t.Run("format", func(t *testing.T) {
		t.Parallel()
		tok := Derive("ivan", "secret")
		assert.Len(t, tok, Length)
		assert.Equal(t, strings.ToLower(tok), tok)
		assert.True(t, Valid(tok))
	})

	t.Run("digest of normalized pair", func(t *testing.T) {
		t.Parallel()
		sum := sha256.Sum256([]byte("ivan:secret"))
		assert.Equal(t, hex.EncodeToString(sum[:]), Derive(" Ivan@skole.hr", "secret"))
		assert.Equal(t, "05b3172c00ea3df62207697debd778f339176d0ed2685400dbcc14874d5ca0bb", Derive("ivan", "secret"))
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "derived token", input: Derive("x", "y"), want: true},
		{name: "empty", input: "", want: false},
		{name: "too short", input: "abc123", want: false},
		{name: "upper case", input: strings.ToUpper(Derive("x", "y")), want: false},
		{name: "non hex", input: strings.Repeat("g", Length), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}

func TestShort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "01234567", Short("0123456789abcdef"))
}
