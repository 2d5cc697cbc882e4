package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	TTS       TTSConfig       `yaml:"tts"`
	Assistant AssistantConfig `yaml:"assistant"`
	Log       LogConfig       `yaml:"log"`
}

type AudioConfig struct {
	Source         string `yaml:"source"`
	HTTPAddr       string `yaml:"http_addr"`
	AuthToken      string `yaml:"auth_token"`
	FileDir        string `yaml:"file_dir"`
	SampleRate     int    `yaml:"sample_rate"`
	SilenceTimeout string `yaml:"silence_timeout"`
	MaxUtterance   string `yaml:"max_utterance"`
	VADMode        int    `yaml:"vad_mode"`
}

type STTConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	APIKeyFile      string  `yaml:"api_key_file"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	TopP            float64 `yaml:"top_p"`
	TopK            int     `yaml:"top_k"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

type TTSConfig struct {
	Enabled      *bool             `yaml:"enabled"`
	DefaultVoice string            `yaml:"default_voice"`
	Voices       map[string]string `yaml:"voices"`
	OutputFormat string            `yaml:"output_format"`
	Player       string            `yaml:"player"`
}

type AssistantConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	Language      string `yaml:"language"`
	HistorySize   int    `yaml:"history_size"`
	ContextWindow string `yaml:"context_window"`
	Welcome       string `yaml:"welcome"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default returns a config with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.SilenceTimeout == "" {
		c.Audio.SilenceTimeout = "5s"
	}
	if c.Audio.MaxUtterance == "" {
		c.Audio.MaxUtterance = "30s"
	}
	if c.STT.Model == "" {
		c.STT.Model = "whisper-1"
	}
	if c.Gemini.APIKeyFile == "" {
		c.Gemini.APIKeyFile = "keys/.gemini_api_key.txt"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-pro"
	}
	if c.Gemini.Temperature == 0 {
		c.Gemini.Temperature = 0.7
	}
	if c.Gemini.TopP == 0 {
		c.Gemini.TopP = 0.95
	}
	if c.Gemini.TopK == 0 {
		c.Gemini.TopK = 40
	}
	if c.Gemini.MaxOutputTokens == 0 {
		c.Gemini.MaxOutputTokens = 1024
	}
	if c.TTS.Enabled == nil {
		enabled := true
		c.TTS.Enabled = &enabled
	}
	if c.TTS.OutputFormat == "" {
		c.TTS.OutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	}
	if c.Assistant.SystemPrompt == "" {
		c.Assistant.SystemPrompt = "You are a helpful multilingual voice assistant. " +
			"Keep your responses concise and conversational. " +
			"Always respond in the same language as the user's query."
	}
	if c.Assistant.Language == "" {
		c.Assistant.Language = "en"
	}
	if c.Assistant.HistorySize == 0 {
		c.Assistant.HistorySize = 10
	}
	if c.Assistant.ContextWindow == "" {
		c.Assistant.ContextWindow = "15m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ResolveGeminiKey returns the Gemini API key, checking the explicit config
// value, then the key file, then the GEMINI_API_KEY env var.
func (c *Config) ResolveGeminiKey() (string, error) {
	if key := strings.TrimSpace(c.Gemini.APIKey); key != "" {
		return key, nil
	}

	if data, err := os.ReadFile(c.Gemini.APIKeyFile); err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}

	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("no Gemini API key: set gemini.api_key, create %s, or export GEMINI_API_KEY", c.Gemini.APIKeyFile)
}

// TTSEnabled reports whether spoken replies are on.
func (c *Config) TTSEnabled() bool {
	return c.TTS.Enabled == nil || *c.TTS.Enabled
}
