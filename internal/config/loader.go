// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the YAML configuration structure. Every field is
// optional; the environment takes precedence over the file, the file over
// built-in defaults.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`
	Debug    *bool  `yaml:"debug,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`

	Sources struct {
		Playlist string `yaml:"playlist,omitempty"`
		Guide    string `yaml:"guide,omitempty"`
	} `yaml:"sources,omitempty"`

	RefreshMinutes *int `yaml:"refreshMinutes,omitempty"`
	IdleMinutes    *int `yaml:"idleMinutes,omitempty"`

	Cache struct {
		Mode          string `yaml:"mode,omitempty"`
		Dir           string `yaml:"dir,omitempty"`
		RedisAddr     string `yaml:"redisAddr,omitempty"`
		RedisPassword string `yaml:"redisPassword,omitempty"`
		RedisDB       *int   `yaml:"redisDb,omitempty"`
	} `yaml:"cache,omitempty"`

	Stream struct {
		FFmpegPath  string `yaml:"ffmpegPath,omitempty"`
		Transcode   *bool  `yaml:"transcode,omitempty"`
		BitrateKbps *int   `yaml:"bitrateKbps,omitempty"`
		LowLatency  *bool  `yaml:"lowLatency,omitempty"`
	} `yaml:"stream,omitempty"`

	Voice struct {
		Token  string `yaml:"token,omitempty"`
		SelfID string `yaml:"selfId,omitempty"`
	} `yaml:"voice,omitempty"`

	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given optional config file path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the file (when present), applies environment overrides and
// validates the result.
func (l *Loader) Load() (*Config, error) {
	var fc FileConfig
	if l.path != "" {
		data, err := os.ReadFile(l.path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := resolve(fc)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(fc FileConfig) *Config {
	cfg := &Config{
		LogLevel:        ParseString("RELAY_LOG_LEVEL", orString(fc.LogLevel, "info")),
		Debug:           ParseBool("RELAY_DEBUG", orBool(fc.Debug, false)),
		DataDir:         ParseString("RELAY_DATA", orString(fc.DataDir, "/var/lib/relaycast")),
		PlaylistURL:     ParseString("RELAY_PLAYLIST_URL", fc.Sources.Playlist),
		GuideURL:        ParseString("RELAY_GUIDE_URL", fc.Sources.Guide),
		RefreshInterval: ParseMinutes("RELAY_REFRESH_MINUTES", orInt(fc.RefreshMinutes, DefaultRefreshMinutes)),
		IdleTimeout:     ParseMinutes("RELAY_IDLE_MINUTES", orInt(fc.IdleMinutes, DefaultIdleMinutes)),
		ListenAddr:      ParseString("RELAY_LISTEN", orString(fc.ListenAddr, DefaultListenAddr)),
	}

	cfg.Cache = CacheConfig{
		Mode:          ParseString("RELAY_CACHE_MODE", orString(fc.Cache.Mode, DefaultCacheMode)),
		Dir:           ParseString("RELAY_CACHE_DIR", fc.Cache.Dir),
		RedisAddr:     ParseString("RELAY_REDIS_ADDR", fc.Cache.RedisAddr),
		RedisPassword: ParseString("RELAY_REDIS_PASSWORD", fc.Cache.RedisPassword),
		RedisDB:       ParseInt("RELAY_REDIS_DB", orInt(fc.Cache.RedisDB, 0)),
	}

	cfg.Stream = StreamConfig{
		FFmpegPath:  ParseString("RELAY_FFMPEG", orString(fc.Stream.FFmpegPath, DefaultFFmpegPath)),
		Transcode:   ParseBool("RELAY_TRANSCODE", orBool(fc.Stream.Transcode, true)),
		BitrateKbps: ParseInt("RELAY_BITRATE_KBPS", orInt(fc.Stream.BitrateKbps, DefaultBitrateKbps)),
		LowLatency:  ParseBool("RELAY_LOW_LATENCY", orBool(fc.Stream.LowLatency, false)),
	}

	cfg.Voice = VoiceConfig{
		Token:  ParseString("RELAY_VOICE_TOKEN", fc.Voice.Token),
		SelfID: ParseString("RELAY_VOICE_SELF_ID", fc.Voice.SelfID),
	}

	if cfg.Debug && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func orBool(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
