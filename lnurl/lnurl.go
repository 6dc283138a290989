// Package lnurl turns bech32 encoded LNURLs into the URLs they point at.
package lnurl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/satoshifaucet/faucetd/bech32"
)

const (
	humanReadablePart = "lnurl"
	prefix            = humanReadablePart + "1"
)

var (
	ErrNotAnLnurl                  = errors.New("not an LNURL")
	ErrUnexpectedHumanReadablePart = errors.New("unexpected human-readable part")
	ErrNotAURL                     = errors.New("decoded LNURL is not a URL")
)

var httpScheme = regexp.MustCompile(`(?i)^https?://`)

// IsLNURL reports whether text carries the lnurl1 prefix, ignoring case and
// surrounding whitespace. It does not validate the encoding.
func IsLNURL(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), prefix)
}

// Resolve decodes an LNURL into the http(s) URL it encodes.
func Resolve(text string) (*url.URL, error) {
	text = strings.TrimSpace(text)
	if !IsLNURL(text) {
		return nil, ErrNotAnLnurl
	}

	hrp, data, err := bech32.Decode(text)
	if err != nil {
		return nil, err
	}
	if hrp != humanReadablePart {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedHumanReadablePart, hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrNotAURL)
	}

	decoded := string(raw)
	if !httpScheme.MatchString(decoded) {
		return nil, ErrNotAURL
	}

	u, err := url.Parse(decoded)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotAURL, decoded)
	}

	return u, nil
}

// Encode returns the upper-case LNURL for rawURL, the form wallets expect in
// QR codes.
func Encode(rawURL string) (string, error) {
	if !httpScheme.MatchString(rawURL) {
		return "", ErrNotAURL
	}

	converted, err := bech32.ConvertBits([]byte(rawURL), 8, 5, true)
	if err != nil {
		return "", err
	}

	str, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}
