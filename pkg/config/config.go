package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/spf13/viper"

	"github.com/alohavoice/aloha/pkg/configutil"
	"github.com/alohavoice/aloha/pkg/filler"
	"github.com/alohavoice/aloha/pkg/intent"
	"github.com/alohavoice/aloha/pkg/layers"
	"github.com/alohavoice/aloha/pkg/resilience"
	"github.com/alohavoice/aloha/pkg/scenario"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Business      BusinessConfig      `mapstructure:"business"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Thresholds    ThresholdsConfig    `mapstructure:"thresholds"`
	Filler        FillerConfig        `mapstructure:"filler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type BusinessConfig struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	Phone         string `mapstructure:"phone"`
	CallbackHours string `mapstructure:"callback_hours"`
}

type AgentConfig struct {
	Name           string `mapstructure:"name"`
	VoiceIntensity string `mapstructure:"voice_intensity"`
	RushedMaxChars int    `mapstructure:"rushed_max_chars"`
}

type SpeechConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

// ThresholdsConfig collects every tunable decision boundary in one
// reviewable block.
type ThresholdsConfig struct {
	ConfidenceFloor   float64 `mapstructure:"confidence_floor"`
	LowConfidence     float64 `mapstructure:"low_confidence"`
	MediumConfidence  float64 `mapstructure:"medium_confidence"`
	PoorAudioQuality  float64 `mapstructure:"poor_audio_quality"`
	FallbackScore     int     `mapstructure:"fallback_score"`
	HighScore         int     `mapstructure:"high_score"`
	MaxBadAttempts    int     `mapstructure:"max_bad_attempts"`
	MaxLowConfTurns   int     `mapstructure:"max_low_conf_turns"`
	SilenceTier1MS    int     `mapstructure:"silence_tier1_ms"`
	SilenceTier2MS    int     `mapstructure:"silence_tier2_ms"`
	SilenceTier3MS    int     `mapstructure:"silence_tier3_ms"`
	TalkativeWords    int     `mapstructure:"talkative_words"`
	TalkativeLong     int     `mapstructure:"talkative_long"`
	TalkativeSwitches int     `mapstructure:"talkative_switches"`
	ClarificationMax  int     `mapstructure:"clarification_max"`
}

type FillerConfig struct {
	MinDelayMS     int `mapstructure:"min_delay_ms"`
	PollIntervalMS int `mapstructure:"poll_interval_ms"`
	TimeoutMS      int `mapstructure:"timeout_ms"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string  `mapstructure:"artifacts_dir"`
	RetentionDays int     `mapstructure:"retention_days"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	EventBuffer   int     `mapstructure:"event_buffer"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("agent.name", "Aloha")
	v.SetDefault("agent.voice_intensity", "moderate")
	v.SetDefault("agent.rushed_max_chars", 220)
	v.SetDefault("thresholds.confidence_floor", 0.7)
	v.SetDefault("thresholds.low_confidence", 0.3)
	v.SetDefault("thresholds.medium_confidence", 0.5)
	v.SetDefault("thresholds.poor_audio_quality", 0.4)
	v.SetDefault("thresholds.fallback_score", 3)
	v.SetDefault("thresholds.high_score", 5)
	v.SetDefault("thresholds.max_bad_attempts", 3)
	v.SetDefault("thresholds.max_low_conf_turns", 5)
	v.SetDefault("thresholds.silence_tier1_ms", 2000)
	v.SetDefault("thresholds.silence_tier2_ms", 6000)
	v.SetDefault("thresholds.silence_tier3_ms", 10000)
	v.SetDefault("thresholds.talkative_words", 150)
	v.SetDefault("thresholds.talkative_long", 2)
	v.SetDefault("thresholds.talkative_switches", 2)
	v.SetDefault("thresholds.clarification_max", 2)
	v.SetDefault("filler.min_delay_ms", 300)
	v.SetDefault("filler.poll_interval_ms", 50)
	v.SetDefault("filler.timeout_ms", 10000)
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.event_buffer", 256)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)
	cfg.Speech.Settings = expandSettings(cfg.Speech.Settings)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Business.Name, "business.name"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Agent.Name, "agent.name"); err != nil {
		return err
	}
	return nil
}

// EngineConfig maps the thresholds onto the intent classifier.
func (c Config) EngineConfig() intent.EngineConfig {
	return intent.EngineConfig{ConfidenceFloor: c.Thresholds.ConfidenceFloor}
}

// DetectorConfig maps the thresholds onto scenario detection.
func (c Config) DetectorConfig() scenario.Config {
	return scenario.Config{
		LowConfidence:    c.Thresholds.LowConfidence,
		MediumConfidence: c.Thresholds.MediumConfidence,
		PoorAudioQuality: c.Thresholds.PoorAudioQuality,
	}
}

// MonitorConfig maps the thresholds onto the communication monitor.
func (c Config) MonitorConfig() resilience.Config {
	return resilience.Config{
		LowConfidence:     c.Thresholds.LowConfidence,
		FallbackScore:     c.Thresholds.FallbackScore,
		HighScore:         c.Thresholds.HighScore,
		MaxBadAttempts:    c.Thresholds.MaxBadAttempts,
		MaxLowConfTurns:   c.Thresholds.MaxLowConfTurns,
		SilenceTier1:      time.Duration(c.Thresholds.SilenceTier1MS) * time.Millisecond,
		SilenceTier2:      time.Duration(c.Thresholds.SilenceTier2MS) * time.Millisecond,
		SilenceTier3:      time.Duration(c.Thresholds.SilenceTier3MS) * time.Millisecond,
		TalkativeWords:    c.Thresholds.TalkativeWords,
		TalkativeLong:     c.Thresholds.TalkativeLong,
		TalkativeSwitches: c.Thresholds.TalkativeSwitches,
	}
}

// FillerManagerConfig maps the filler block onto the manager.
func (c Config) FillerManagerConfig() filler.Config {
	return filler.Config{
		MinDelay:     time.Duration(c.Filler.MinDelayMS) * time.Millisecond,
		PollInterval: time.Duration(c.Filler.PollIntervalMS) * time.Millisecond,
		Timeout:      time.Duration(c.Filler.TimeoutMS) * time.Millisecond,
	}
}

// OrchestratorConfig maps the remaining knobs onto the layer ladder.
func (c Config) OrchestratorConfig() layers.Config {
	return layers.Config{
		RushedMaxChars:   c.Agent.RushedMaxChars,
		ClarificationMax: c.Thresholds.ClarificationMax,
	}
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
