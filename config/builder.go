package config

import (
	"sort"

	"github.com/jpalmerr/danmaku"
)

// BuildOptions converts parsed configuration into SDK options for
// [danmaku.New]. Zero-valued settings are left to the SDK defaults.
func BuildOptions(cfg *Config) ([]danmaku.Option, error) {
	opts := []danmaku.Option{
		danmaku.WithPort(cfg.Port),
	}

	if cfg.Title != "" {
		opts = append(opts, danmaku.WithTitle(cfg.Title))
	}
	if cfg.Display.Width > 0 && cfg.Display.Height > 0 {
		opts = append(opts, danmaku.WithDisplaySize(cfg.Display.Width, cfg.Display.Height))
	}
	if cfg.LaneHeight > 0 {
		opts = append(opts, danmaku.WithLaneHeight(cfg.LaneHeight))
	}
	if cfg.PollInterval > 0 {
		opts = append(opts, danmaku.WithPollInterval(cfg.PollInterval.Duration()))
	}
	if cfg.ResumeDelay > 0 {
		opts = append(opts, danmaku.WithResumeDelay(cfg.ResumeDelay.Duration()))
	}
	if cfg.DurationScale > 0 {
		opts = append(opts, danmaku.WithDurationScale(cfg.DurationScale))
	}
	if cfg.Storage.Driver == DriverSQLite {
		opts = append(opts, danmaku.WithStorage(cfg.Storage.Path))
	}
	if cfg.Feed.Interval > 0 {
		opts = append(opts, danmaku.WithFeedInterval(cfg.Feed.Interval.Duration()))
	}
	if cfg.Feed.MaxConcurrency > 0 {
		opts = append(opts, danmaku.WithMaxConcurrency(cfg.Feed.MaxConcurrency))
	}

	sources, err := BuildSources(cfg)
	if err != nil {
		return nil, err
	}
	if len(sources) > 0 {
		opts = append(opts, danmaku.WithSources(sources...))
	}

	return opts, nil
}

// BuildSources converts the configured feed sources into SDK sources.
func BuildSources(cfg *Config) ([]danmaku.Source, error) {
	var sources []danmaku.Source
	for _, sc := range cfg.Feed.Sources {
		src, err := buildSource(sc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// buildSource converts a single SourceConfig to an SDK Source.
func buildSource(sc SourceConfig) (danmaku.Source, error) {
	var opts []danmaku.SourceOption

	if sc.Timeout != 0 {
		opts = append(opts, danmaku.WithTimeout(sc.Timeout.Duration()))
	}

	if len(sc.Headers) > 0 {
		opts = append(opts, danmaku.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}

	decoder, err := buildDecoder(sc.Decoder)
	if err != nil {
		return danmaku.Source{}, err
	}
	if decoder != nil {
		opts = append(opts, danmaku.WithDecoder(decoder))
	}

	return danmaku.NewSource(sc.Name, sc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildDecoder converts DecoderConfig to a Decoder function.
// Returns nil for default/empty decoders (SDK uses DefaultDecoder).
func buildDecoder(dc DecoderConfig) (danmaku.Decoder, error) {
	switch dc.Type {
	case "", "default":
		// nil signals SDK to use DefaultDecoder
		return nil, nil
	case "lines":
		return danmaku.LinesDecoder, nil
	case "json":
		return danmaku.JSONFieldDecoder(dc.Path), nil
	case "regex":
		return danmaku.RegexDecoder(dc.Pattern)
	default:
		// validation should catch this, but return nil as fallback
		return nil, nil
	}
}
