package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/dispatch.ini"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// DispatchConfig describes runtime options for the dispatch daemon.
// Every value has a reference default; INI values override defaults and
// DISPATCH_* environment variables override both.
type DispatchConfig struct {
	Environment string
	HTTPAddress string
	LogFile     string
	LogLevel    string
	LedgerPath  string

	// Engine tick tuning
	DispatchInterval       time.Duration
	MonitorInterval        time.Duration
	BatchSize              int
	OverflowPromotionBatch int

	// Per-user create rate limiting
	CreateRatePerSec float64
	CreateBurst      int
}

// LoadDispatchConfig reads the current environment and loads the
// matching dispatch config file, merged over the settings defaults.
func LoadDispatchConfig(root string) (DispatchConfig, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return DispatchConfig{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return DispatchConfig{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := DispatchConfig{
		Environment:            s.Environment,
		HTTPAddress:            firstNonEmpty(os.Getenv("DISPATCH_HTTP_ADDRESS"), merged["http_address"], ":8085"),
		LogFile:                firstNonEmpty(os.Getenv("DISPATCH_LOG_FILE"), merged["log_file"]),
		LogLevel:               firstNonEmpty(os.Getenv("DISPATCH_LOG_LEVEL"), merged["log_level"], "info"),
		LedgerPath:             firstNonEmpty(os.Getenv("DISPATCH_LEDGER_PATH"), merged["ledger_path"]),
		BatchSize:              parseOptionalInt(firstNonEmpty(os.Getenv("DISPATCH_BATCH_SIZE"), merged["batch_size"]), 10),
		OverflowPromotionBatch: parseOptionalInt(firstNonEmpty(os.Getenv("DISPATCH_OVERFLOW_PROMOTION_BATCH"), merged["overflow_promotion_batch"]), 5),
		CreateBurst:            parseOptionalInt(firstNonEmpty(os.Getenv("DISPATCH_CREATE_BURST"), merged["create_burst"]), 5),
	}

	cfg.DispatchInterval, err = parseOptionalDuration(firstNonEmpty(os.Getenv("DISPATCH_DISPATCH_INTERVAL"), merged["dispatch_interval"]), 2*time.Second)
	if err != nil {
		return DispatchConfig{}, fmt.Errorf("invalid dispatch_interval: %w", err)
	}
	cfg.MonitorInterval, err = parseOptionalDuration(firstNonEmpty(os.Getenv("DISPATCH_MONITOR_INTERVAL"), merged["monitor_interval"]), 5*time.Second)
	if err != nil {
		return DispatchConfig{}, fmt.Errorf("invalid monitor_interval: %w", err)
	}

	if v := firstNonEmpty(os.Getenv("DISPATCH_CREATE_RATE"), merged["create_rate"]); strings.TrimSpace(v) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return DispatchConfig{}, fmt.Errorf("invalid create_rate %q: %w", v, err)
		}
		cfg.CreateRatePerSec = parsed
	} else {
		cfg.CreateRatePerSec = 2
	}

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseOptionalInt(v string, fallback int) int {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return parsed
	}
	return fallback
}

func parseOptionalDuration(v string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return time.ParseDuration(strings.TrimSpace(v))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
