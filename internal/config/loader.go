package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ringclient/pkg/logging"
)

const (
	userConfigDir    = ".config/ringclient"
	configFileName   = "config.yaml"
	envFileName      = ".env"
	systemIDFileName = "system-id"
)

var osUserHomeDir = os.UserHomeDir

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// ConfigFilePath returns the location of config.yaml inside configPath.
func ConfigFilePath(configPath string) string {
	return filepath.Join(configPath, configFileName)
}

// LoadConfig loads configuration from configPath, applies .env files and
// RING_* environment overrides, and validates the result. A missing
// config.yaml is not an error.
func LoadConfig(configPath string) (RingConfig, error) {
	if err := loadDotEnv(configPath); err != nil {
		return RingConfig{}, err
	}

	config, err := readConfigFile(configPath)
	if err != nil {
		return RingConfig{}, err
	}

	if err := applyEnv(&config); err != nil {
		return RingConfig{}, err
	}

	if config.SystemID == "" {
		id, err := loadOrCreateSystemID(configPath)
		if err != nil {
			return RingConfig{}, err
		}
		config.SystemID = id
	}

	if errs := config.Validate(); errs.HasErrors() {
		return RingConfig{}, errs
	}
	return config, nil
}

// readConfigFile decodes config.yaml over the defaults without touching the
// environment. Watcher uses it for reloads.
func readConfigFile(configPath string) (RingConfig, error) {
	configFilePath := ConfigFilePath(configPath)
	config := DefaultConfig(configPath)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return RingConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return RingConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// loadDotEnv loads .env from the configuration directory and the working
// directory. Variables already present in the environment are kept.
func loadDotEnv(configPath string) error {
	candidates := []string{filepath.Join(configPath, envFileName), envFileName}

	var files []string
	for _, file := range candidates {
		if _, err := os.Stat(file); err == nil {
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("error loading %s: %w", strings.Join(files, ", "), err)
	}
	logging.Debug("ConfigLoader", "Loaded environment from %s", strings.Join(files, ", "))
	return nil
}

func applyEnv(config *RingConfig) error {
	err := envdecode.StrictDecode(config)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("error reading RING_* environment: %w", err)
	}
	return nil
}

func loadOrCreateSystemID(configPath string) (string, error) {
	path := filepath.Join(configPath, systemIDFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("error reading system id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(configPath, 0o700); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("error writing system id: %w", err)
	}
	logging.Info("ConfigLoader", "Generated system id in %s", path)
	return id, nil
}
