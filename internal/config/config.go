// SPDX-License-Identifier: MIT

// Package config provides configuration management for relaycast.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultRefreshMinutes = 720
	DefaultIdleMinutes    = 10
	DefaultBitrateKbps    = 4500
	DefaultCacheMode      = "memory"
	DefaultListenAddr     = ":8090"
	DefaultFFmpegPath     = "ffmpeg"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	LogLevel string
	Debug    bool

	// Ingestion sources.
	PlaylistURL string
	GuideURL    string

	// RefreshInterval between scheduled full refresh cycles.
	RefreshInterval time.Duration

	Cache  CacheConfig
	Stream StreamConfig
	Voice  VoiceConfig

	// DataDir holds the badger record store.
	DataDir string

	// IdleTimeout of zero spectator presence before auto-stop.
	IdleTimeout time.Duration

	// ListenAddr for the operational HTTP endpoint.
	ListenAddr string
}

// CacheConfig selects the blob cache backend.
type CacheConfig struct {
	Mode          string // "memory", "disk" or "redis"
	Dir           string // disk mode root
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// StreamConfig controls the media pipeline.
type StreamConfig struct {
	FFmpegPath  string
	Transcode   bool
	BitrateKbps int
	LowLatency  bool
}

// VoiceConfig identifies the relay against the voice platform.
type VoiceConfig struct {
	Token  string
	SelfID string // the relay's own user id, excluded from spectator counts
}

// Validate reports a fatal configuration error when required endpoints or
// credentials are missing or malformed.
func (c *Config) Validate() error {
	if c.PlaylistURL == "" {
		return fmt.Errorf("config: playlist URL is required")
	}
	if err := validateHTTPURL(c.PlaylistURL); err != nil {
		return fmt.Errorf("config: playlist URL: %w", err)
	}
	if c.GuideURL == "" {
		return fmt.Errorf("config: guide URL is required")
	}
	if err := validateHTTPURL(c.GuideURL); err != nil {
		return fmt.Errorf("config: guide URL: %w", err)
	}
	if c.Voice.Token == "" {
		return fmt.Errorf("config: voice token is required")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config: refresh interval must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("config: idle timeout must be positive")
	}
	switch c.Cache.Mode {
	case "memory", "redis":
	case "disk":
		if c.Cache.Dir == "" {
			return fmt.Errorf("config: cache dir is required in disk mode")
		}
	default:
		return fmt.Errorf("config: unknown cache mode %q", c.Cache.Mode)
	}
	if c.Stream.BitrateKbps <= 0 {
		return fmt.Errorf("config: bitrate must be positive")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
