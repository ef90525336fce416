package llm

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EncodingError means the request could not be represented in the outbound charset.
type EncodingError struct {
	Charset string
	Cause   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode request as %s: %v", e.Charset, e.Cause)
}

func (e *EncodingError) Unwrap() error { return e.Cause }

// Charset restricts the bytes sent to a provider. The zero value is UTF-8.
type Charset struct {
	name  string
	cmap  *charmap.Charmap
	ascii bool
}

// ParseCharset maps a config value to a Charset.
func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return Charset{name: "utf-8"}, nil
	case "latin1", "iso-8859-1":
		return Charset{name: "iso-8859-1", cmap: charmap.ISO8859_1}, nil
	case "ascii", "us-ascii":
		return Charset{name: "us-ascii", ascii: true}, nil
	}
	return Charset{}, fmt.Errorf("unsupported charset %q", name)
}

// Name is the IANA name used in the Content-Type header.
func (c Charset) Name() string {
	if c.name == "" {
		return "utf-8"
	}
	return c.name
}

// ContentType for a JSON body in this charset.
func (c Charset) ContentType() string {
	return "application/json; charset=" + c.Name()
}

// Encode converts UTF-8 bytes to the charset. It fails with *EncodingError on the first
// unrepresentable rune.
func (c Charset) Encode(b []byte) ([]byte, error) {
	switch {
	case c.ascii:
		for i, r := range string(b) {
			if r >= utf8.RuneSelf {
				return nil, &EncodingError{Charset: c.Name(), Cause: fmt.Errorf("rune %q at offset %d", r, i)}
			}
		}
		return b, nil
	case c.cmap != nil:
		out, err := c.cmap.NewEncoder().Bytes(b)
		if err != nil {
			return nil, &EncodingError{Charset: c.Name(), Cause: err}
		}
		return out, nil
	}
	return b, nil
}

// Check reports whether s is representable without producing the encoded bytes.
func (c Charset) Check(s string) error {
	_, err := c.Encode([]byte(s))
	return err
}

func (c Charset) representable(r rune) bool {
	switch {
	case c.ascii:
		return r < utf8.RuneSelf
	case c.cmap != nil:
		_, ok := c.cmap.EncodeRune(r)
		return ok
	}
	return true
}

// Sanitize drops every rune the charset cannot carry.
func (c Charset) Sanitize(s string) string {
	if c.cmap == nil && !c.ascii {
		return s
	}
	return strings.Map(func(r rune) rune {
		if c.representable(r) {
			return r
		}
		return -1
	}, s)
}

var currencyWords = strings.NewReplacer(
	"₹", "Rs.",
	"€", "EUR ",
	"£", "GBP ",
	"¥", "JPY ",
)

// Degrade rewrites s into plain text for the charset: currency glyphs become words,
// accents are stripped, and whatever remains unrepresentable is dropped.
func (c Charset) Degrade(s string) string {
	s = currencyWords.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if plain, _, err := transform.String(t, s); err == nil {
		s = plain
	}
	return c.Sanitize(s)
}
