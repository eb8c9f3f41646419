package danmaku

import (
	"errors"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source is a remote message list replayed on the board every feed cycle.
//
// Source is immutable after creation via [NewSource]. All fields are
// private with getter methods that return copies of mutable data (maps).
//
// Sources are configured using [SourceOption] functions such as
// [WithHeaders], [WithTimeout] and [WithDecoder].
type Source struct {
	name    string
	url     string
	headers map[string]string
	timeout time.Duration
	decoder Decoder
}

// Name returns the source's display name.
func (s Source) Name() string {
	return s.name
}

// URL returns the URL fetched every cycle.
func (s Source) URL() string {
	return s.url
}

// Headers returns a copy of the custom HTTP headers sent with every fetch.
// Returns nil if no custom headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// Decoder returns the source's [Decoder], or nil if none was specified.
// When nil, the feed applies [DefaultDecoder].
func (s Source) Decoder() Decoder {
	return s.decoder
}

// NewSource creates a [Source] with the given name, URL, and options.
//
// The rawURL parameter must be a valid URL with an http or https scheme.
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	src, err := danmaku.NewSource("upstream", "https://danmaku.example.com/messages",
//	    danmaku.WithTimeout(5 * time.Second),
//	)
func NewSource(name, rawURL string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &sourceConfig{
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		name:    name,
		url:     rawURL,
		headers: cfg.headers,
		timeout: cfg.timeout,
		decoder: cfg.decoder,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
