package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	Face      Service `yaml:"face"`
	Speech    Service `yaml:"speech"`
	Sentiment Service `yaml:"sentiment"`
	ASR       Service `yaml:"asr"`
	// Timeout is the per-request budget for every service above, in seconds.
	Timeout int `yaml:"timeout"`
}
type Completion struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	Timeout     int     `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
}
type Recognizer struct {
	Enabled bool `yaml:"enabled"`
	// DetectionInterval is in milliseconds.
	DetectionInterval int  `yaml:"detection_interval"`
	MaxSamples        int  `yaml:"max_samples"`
	Retention         int  `yaml:"retention"`
	KeepFrames        bool `yaml:"keep_frames"`
}
type Audio struct {
	Recognizer `yaml:",inline"`
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	// ClipLength is in milliseconds.
	ClipLength int `yaml:"clip_length"`
	// ReplayDir replaces the microphone with recorded clips when set.
	ReplayDir string `yaml:"replay_dir"`
}
type Video struct {
	Recognizer  `yaml:",inline"`
	SnapshotURL string `yaml:"snapshot_url"`
	ReplayDir   string `yaml:"replay_dir"`
}
type Fusion struct {
	Enabled bool `yaml:"enabled"`
	// SyncInterval is in milliseconds.
	SyncInterval int `yaml:"sync_interval"`
	MaxRecords   int `yaml:"max_records"`
	Retention    int `yaml:"retention"`
	// Report windows over fused history, in seconds.
	TimeWindow int `yaml:"time_window"`
	Overlap    int `yaml:"overlap"`
}
type Server struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}
type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Server     Server     `yaml:"server"`
	Completion Completion `yaml:"completion"`
	Services   Services   `yaml:"services"`
	Audio      Audio      `yaml:"audio"`
	Video      Video      `yaml:"video"`
	Fusion     Fusion     `yaml:"fusion"`
	// MealKeywords overrides the built-in meal keyword gate.
	MealKeywords []string `yaml:"meal_keywords"`
}

// Default returns the configuration used when no file is found.
func Default() *Root {
	r := base()
	r.applyDefaults()
	return r
}

// base holds the switches that default to on; yaml cannot tell false from unset.
func base() *Root {
	r := &Root{}
	r.Audio.Enabled = true
	r.Video.Enabled = true
	r.Fusion.Enabled = true
	return r
}

func (r *Root) applyDefaults() {
	if r.Pipeline.Name == "" {
		r.Pipeline.Name = "companion"
	}
	if r.Pipeline.LogLvl == "" {
		r.Pipeline.LogLvl = "info"
	}
	if r.Server.Addr == "" {
		r.Server.Addr = ":8080"
	}
	if len(r.Server.CORSOrigins) == 0 {
		r.Server.CORSOrigins = []string{"*"}
	}
	if r.Completion.BaseURL == "" {
		r.Completion.BaseURL = "https://api.groq.com/openai/v1/"
	}
	if r.Completion.Model == "" {
		r.Completion.Model = "llama3-8b-8192"
	}
	if r.Completion.APIKeyEnv == "" {
		r.Completion.APIKeyEnv = "GROQ_API_KEY"
	}
	if r.Completion.Temperature == 0 {
		r.Completion.Temperature = 0.7
	}
	if r.Completion.Timeout == 0 {
		r.Completion.Timeout = 30
	}
	if r.Services.Timeout == 0 {
		r.Services.Timeout = 10
	}
	if r.Audio.DetectionInterval == 0 {
		r.Audio.DetectionInterval = 3000
	}
	if r.Audio.SampleRate == 0 {
		r.Audio.SampleRate = 16000
	}
	if r.Audio.Channels == 0 {
		r.Audio.Channels = 1
	}
	if r.Audio.ClipLength == 0 {
		r.Audio.ClipLength = r.Audio.DetectionInterval
	}
	if r.Video.DetectionInterval == 0 {
		r.Video.DetectionInterval = 1000
	}
	for _, rec := range []*Recognizer{&r.Audio.Recognizer, &r.Video.Recognizer} {
		if rec.MaxSamples == 0 {
			rec.MaxSamples = 1000
		}
	}
	if r.Fusion.SyncInterval == 0 {
		r.Fusion.SyncInterval = 1000
	}
	if r.Fusion.MaxRecords == 0 {
		r.Fusion.MaxRecords = 3600
	}
	if r.Fusion.TimeWindow == 0 {
		r.Fusion.TimeWindow = 30
	}
	if r.Fusion.Overlap >= r.Fusion.TimeWindow {
		r.Fusion.Overlap = 0
	}
}

// APIKey reads the completion key from the configured environment variable.
func (r *Root) APIKey() string { return os.Getenv(r.Completion.APIKeyEnv) }

// Paths lists the candidate config files in probe order.
func Paths() []string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
}

// Load decodes the first readable candidate file, then applies overrides from v
// (bound flags and COMPANION_* variables). A nil v skips overrides. Missing files are
// not an error: defaults are used.
func Load(v *viper.Viper, paths ...string) (*Root, error) {
	if len(paths) == 0 {
		paths = Paths()
	}
	cfg := base()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		err = yaml.NewDecoder(f).Decode(cfg)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", p)
		}
		break
	}
	if v != nil {
		if err := override(v, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// NewViper returns a viper instance reading COMPANION_* variables, with keys nested by
// underscore (COMPANION_SERVER_ADDR sets server.addr).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("companion")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Settings that may come from flags or the environment.
var (
	stringOverrides = []string{
		"pipeline.log_level",
		"server.addr",
		"completion.base_url",
		"completion.model",
		"completion.api_key_env",
		"services.face.url",
		"services.speech.url",
		"services.sentiment.url",
		"services.asr.url",
		"audio.replay_dir",
		"video.snapshot_url",
		"video.replay_dir",
	}
	boolOverrides = []string{
		"audio.enabled",
		"video.enabled",
		"fusion.enabled",
	}
)

func override(v *viper.Viper, cfg *Root) error {
	settings := map[string]any{}
	for _, k := range stringOverrides {
		if v.IsSet(k) {
			setPath(settings, k, v.GetString(k))
		}
	}
	for _, k := range boolOverrides {
		if v.IsSet(k) {
			setPath(settings, k, v.GetBool(k))
		}
	}
	if len(settings) == 0 {
		return nil
	}
	// Round-trip through yaml so the overrides land on the same tags as the file.
	b, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "encode overrides")
	}
	return errors.Wrap(yaml.Unmarshal(b, cfg), "apply overrides")
}

func setPath(m map[string]any, key string, val any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }

func DurMillis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
