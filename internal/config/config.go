package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// redactedPlaceholder replaces credential values in the ops API view.
const redactedPlaceholder = "[redacted]"

// Config represents the complete daemon configuration
type Config struct {
	Audio    AudioConfig    `yaml:"audio" json:"audio"`
	Trigger  TriggerConfig  `yaml:"trigger" json:"trigger"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Delivery DeliveryConfig `yaml:"delivery" json:"delivery"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// AudioConfig selects and parameterizes the frame source
type AudioConfig struct {
	Backend        string    `yaml:"backend" json:"backend"`                 // pvrecorder, portaudio or udp
	SampleRate     int       `yaml:"sample_rate" json:"sample_rate"`         // Hz
	FrameLength    int       `yaml:"frame_length" json:"frame_length"`       // samples per frame
	DeviceIndex    int       `yaml:"device_index" json:"device_index"`       // -1 selects the default device
	BufferedFrames int       `yaml:"buffered_frames" json:"buffered_frames"` // device-side frame queue depth
	UDP            UDPConfig `yaml:"udp" json:"udp"`
}

// UDPConfig contains the network frame source configuration
type UDPConfig struct {
	BindAddress string `yaml:"bind_address" json:"bind_address"`
	Port        int    `yaml:"port" json:"port"`
	QueueSize   int    `yaml:"queue_size" json:"queue_size"` // bounded receive queue, packets
}

// TriggerConfig selects and parameterizes the wake word detector
type TriggerConfig struct {
	Backend     string       `yaml:"backend" json:"backend"` // porcupine or energy
	AccessKey   string       `yaml:"access_key" json:"access_key"`
	ModelPath   string       `yaml:"model_path" json:"model_path"`
	Sensitivity float32      `yaml:"sensitivity" json:"sensitivity"`
	Energy      EnergyConfig `yaml:"energy" json:"energy"`
}

// EnergyConfig contains the model-free energy detector parameters
type EnergyConfig struct {
	Threshold         float64 `yaml:"threshold" json:"threshold"`                   // normalized RMS, 0..1
	ConsecutiveFrames int     `yaml:"consecutive_frames" json:"consecutive_frames"` // frames above threshold to arm
	RefractoryFrames  int     `yaml:"refractory_frames" json:"refractory_frames"`   // frames suppressed after a match
}

// CaptureConfig contains the recording window parameters
type CaptureConfig struct {
	RecordingDuration float64 `yaml:"recording_duration" json:"recording_duration"` // seconds
}

// StorageConfig contains the artifact storage parameters
type StorageConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DeliveryConfig contains the SMTP submission parameters
type DeliveryConfig struct {
	SMTPHost  string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort  int    `yaml:"smtp_port" json:"smtp_port"`
	Sender    string `yaml:"sender" json:"sender"`
	Password  string `yaml:"password" json:"password"`
	Recipient string `yaml:"recipient" json:"recipient"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // seconds, per attempt
}

// HTTPConfig contains the ops API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port" json:"port"`
	Address string `yaml:"address" json:"address"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"` // stdout, stderr or a file path
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result
func Load(path string) (*Config, error) {
	// A missing .env file is not an error, the variables may come from
	// the process environment instead
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("environment override failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset fields with the daemon defaults.
func (c *Config) applyDefaults() {
	if c.Audio.Backend == "" {
		c.Audio.Backend = "pvrecorder"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameLength == 0 {
		c.Audio.FrameLength = 512
	}
	if c.Audio.BufferedFrames == 0 {
		c.Audio.BufferedFrames = 50
	}
	if c.Audio.UDP.QueueSize == 0 {
		c.Audio.UDP.QueueSize = 256
	}

	if c.Trigger.Backend == "" {
		c.Trigger.Backend = "porcupine"
	}
	if c.Trigger.Sensitivity == 0 {
		c.Trigger.Sensitivity = 0.5
	}
	if c.Trigger.Energy.Threshold == 0 {
		c.Trigger.Energy.Threshold = 0.25
	}
	if c.Trigger.Energy.ConsecutiveFrames == 0 {
		c.Trigger.Energy.ConsecutiveFrames = 3
	}
	if c.Trigger.Energy.RefractoryFrames == 0 {
		c.Trigger.Energy.RefractoryFrames = 50
	}

	if c.Capture.RecordingDuration == 0 {
		c.Capture.RecordingDuration = 15
	}

	if c.Storage.Directory == "" {
		c.Storage.Directory = "temp_recordings"
	}

	if c.Delivery.SMTPPort == 0 {
		c.Delivery.SMTPPort = 587
	}
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = 30
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// applyEnvOverrides lets environment variables win over the file. The
// variable names match the original deployment surface.
func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("PICOVOICE_ACCESS_KEY"); ok {
		c.Trigger.AccessKey = v
	}
	if v, ok := os.LookupEnv("WAKE_WORD_MODEL_PATH"); ok {
		c.Trigger.ModelPath = v
	}
	if v, ok := os.LookupEnv("TEMP_AUDIO_DIR"); ok {
		c.Storage.Directory = v
	}
	if v, ok := os.LookupEnv("RECORDING_DURATION_SECONDS"); ok {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RECORDING_DURATION_SECONDS %q: %w", v, err)
		}
		c.Capture.RecordingDuration = seconds
	}
	if v, ok := os.LookupEnv("SENDER_EMAIL"); ok {
		c.Delivery.Sender = v
	}
	if v, ok := os.LookupEnv("SENDER_APP_PASSWORD"); ok {
		c.Delivery.Password = v
	}
	if v, ok := os.LookupEnv("RECEIVER_EMAIL"); ok {
		c.Delivery.Recipient = v
	}
	if v, ok := os.LookupEnv("SMTP_SERVER"); ok {
		c.Delivery.SMTPHost = v
	}
	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		c.Delivery.SMTPPort = port
	}
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Trigger.Validate(); err != nil {
		return fmt.Errorf("trigger config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Delivery.Validate(); err != nil {
		return fmt.Errorf("delivery config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	validBackends := map[string]bool{"pvrecorder": true, "portaudio": true, "udp": true}
	if !validBackends[a.Backend] {
		return fmt.Errorf("backend must be one of [pvrecorder, portaudio, udp], got '%s'", a.Backend)
	}

	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.FrameLength < 1 {
		return fmt.Errorf("frame_length must be at least 1 sample, got %d", a.FrameLength)
	}

	if a.DeviceIndex < -1 {
		return fmt.Errorf("device_index must be -1 (default device) or a device number, got %d", a.DeviceIndex)
	}

	if a.BufferedFrames < 1 {
		return fmt.Errorf("buffered_frames must be at least 1, got %d", a.BufferedFrames)
	}

	if a.Backend == "udp" {
		if a.UDP.BindAddress == "" {
			return fmt.Errorf("udp bind_address cannot be empty")
		}

		if a.UDP.Port < 1 || a.UDP.Port > 65535 {
			return fmt.Errorf("udp port must be between 1 and 65535, got %d", a.UDP.Port)
		}

		if a.UDP.QueueSize < 1 {
			return fmt.Errorf("udp queue_size must be at least 1, got %d", a.UDP.QueueSize)
		}
	}

	return nil
}

// Validate validates trigger configuration
func (t *TriggerConfig) Validate() error {
	switch t.Backend {
	case "porcupine":
		if t.AccessKey == "" {
			return fmt.Errorf("access_key cannot be empty for the porcupine backend")
		}

		if t.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the porcupine backend")
		}

		if t.Sensitivity < 0 || t.Sensitivity > 1 {
			return fmt.Errorf("sensitivity must be between 0 and 1, got %f", t.Sensitivity)
		}
	case "energy":
		if t.Energy.Threshold <= 0 || t.Energy.Threshold > 1 {
			return fmt.Errorf("energy threshold must be between 0 (exclusive) and 1, got %f", t.Energy.Threshold)
		}

		if t.Energy.ConsecutiveFrames < 1 {
			return fmt.Errorf("energy consecutive_frames must be at least 1, got %d", t.Energy.ConsecutiveFrames)
		}

		if t.Energy.RefractoryFrames < 0 {
			return fmt.Errorf("energy refractory_frames cannot be negative, got %d", t.Energy.RefractoryFrames)
		}
	default:
		return fmt.Errorf("backend must be 'porcupine' or 'energy', got '%s'", t.Backend)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.RecordingDuration <= 0 {
		return fmt.Errorf("recording_duration must be positive, got %f", c.RecordingDuration)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	return nil
}

// Validate validates delivery configuration
func (d *DeliveryConfig) Validate() error {
	if d.SMTPHost == "" {
		return fmt.Errorf("smtp_host cannot be empty")
	}

	if d.SMTPPort < 1 || d.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535, got %d", d.SMTPPort)
	}

	if d.Sender == "" {
		return fmt.Errorf("sender cannot be empty")
	}

	if d.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if d.Recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	if d.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", d.Timeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.MaxSizeMB < 0 {
		return fmt.Errorf("max_size_mb cannot be negative, got %d", l.MaxSizeMB)
	}

	if l.MaxBackups < 0 {
		return fmt.Errorf("max_backups cannot be negative, got %d", l.MaxBackups)
	}

	if l.MaxAgeDays < 0 {
		return fmt.Errorf("max_age_days cannot be negative, got %d", l.MaxAgeDays)
	}

	return nil
}

// Redacted returns a copy of the configuration safe to expose over the
// ops API, with credential values masked
func (c *Config) Redacted() Config {
	out := *c
	if out.Trigger.AccessKey != "" {
		out.Trigger.AccessKey = redactedPlaceholder
	}
	if out.Delivery.Password != "" {
		out.Delivery.Password = redactedPlaceholder
	}
	return out
}

// GetRecordingDuration returns the capture window length as a time.Duration
func (c *CaptureConfig) GetRecordingDuration() time.Duration {
	return time.Duration(c.RecordingDuration * float64(time.Second))
}

// GetTimeoutDuration returns the per-attempt delivery timeout as a time.Duration
func (d *DeliveryConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}
