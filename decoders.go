package danmaku

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpalmerr/danmaku/internal/feeder"
)

// DefaultDecoder is the [Decoder] used when no decoder is specified on a
// [Source]. It reads the board's own message list format, as served by
// GET /messages:
//
//	[{"data": "hello", "date": "2026-01-01T00:00:00Z"}]
//
// Entries with blank data are skipped.
var DefaultDecoder Decoder = func(body []byte) ([]Record, error) {
	entries, err := feeder.DecodeListings(body)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{Text: e.Content, CreatedAt: e.CreatedAt}
	}
	return records, nil
}

// JSONFieldDecoder returns a [Decoder] for a JSON array of objects, taking
// each record's text from a field addressed with dot notation.
//
// For example, "message.body" reads [{"message": {"body": "hi"}}].
// Booleans and numbers are formatted as text; elements without the field,
// or with an empty value, are skipped.
//
// Example:
//
//	decoder := danmaku.JSONFieldDecoder("comment.text")
func JSONFieldDecoder(path string) Decoder {
	parts := strings.Split(path, ".")

	return func(body []byte) ([]Record, error) {
		var items []interface{}
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}

		var records []Record
		for _, item := range items {
			text := extractJSONPath(item, parts)
			if text == "" {
				continue
			}
			records = append(records, Record{Text: text})
		}
		return records, nil
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) string {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// LinesDecoder is a [Decoder] for plain text: every non-blank line, with
// surrounding whitespace trimmed, becomes one record.
var LinesDecoder Decoder = func(body []byte) ([]Record, error) {
	var records []Record
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, Record{Text: line})
	}
	return records, nil
}

// RegexDecoder returns a [Decoder] that emits one record per match of
// pattern in the body, taking the text from the first capture group.
//
// Returns an error if the pattern is invalid or has no capture group.
//
// Example:
//
//	// <li class="comment">nice</li>
//	decoder, err := danmaku.RegexDecoder(`<li class="comment">([^<]+)</li>`)
func RegexDecoder(pattern string) (Decoder, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, errors.New("pattern must contain a capture group")
	}

	return func(body []byte) ([]Record, error) {
		var records []Record
		for _, m := range re.FindAllSubmatch(body, -1) {
			text := strings.TrimSpace(string(m[1]))
			if text == "" {
				continue
			}
			records = append(records, Record{Text: text})
		}
		return records, nil
	}, nil
}

// MustRegexDecoder is like [RegexDecoder] but panics if the pattern is
// invalid.
func MustRegexDecoder(pattern string) Decoder {
	decoder, err := RegexDecoder(pattern)
	if err != nil {
		panic("danmaku: invalid regex pattern: " + err.Error())
	}
	return decoder
}

// FirstMatch returns a [Decoder] that tries decoders in order, returning
// the first result that holds at least one record.
//
// If every decoder fails or finds nothing, FirstMatch returns the last
// error, or no records when none failed.
//
// Example:
//
//	// accept the board's own format, fall back to plain text
//	decoder := danmaku.FirstMatch(danmaku.DefaultDecoder, danmaku.LinesDecoder)
func FirstMatch(decoders ...Decoder) Decoder {
	return func(body []byte) ([]Record, error) {
		var lastErr error
		for _, decoder := range decoders {
			records, err := decoder(body)
			if err != nil {
				lastErr = err
				continue
			}
			if len(records) > 0 {
				return records, nil
			}
		}
		return nil, lastErr
	}
}
