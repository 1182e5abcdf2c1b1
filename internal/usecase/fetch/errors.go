// Package fetch holds the sentinel error taxonomy shared by the HTTP
// fetcher and content extractor: a closed set of wrapped errors
// rather than ad-hoc string-matched failures, so the consumer pool and
// fetch log can categorize an outcome without inspecting error text.
package fetch

import "errors"

var (
	// ErrInvalidURL indicates a URL's format or scheme is unsupported. Only
	// http:// and https:// are accepted.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates a URL resolves to a private, loopback, or
	// link-local address and was rejected to prevent SSRF.
	ErrPrivateIP = errors.New("private IP access denied")

	// ErrTooManyRedirects indicates a redirect chain exceeded the configured
	// maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates a response body exceeded the configured size
	// limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates the readability or structured extraction
	// engine found no usable article content.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
