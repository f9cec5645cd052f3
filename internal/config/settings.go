package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tailscale/hujson"
)

// EnvPrefix prefixes environment overrides, e.g. UPTIME_API_URL.
const EnvPrefix = "UPTIME"

// Setting keys.
const (
	KeyAPIURL           = "api_url"
	KeyAPITimeout       = "api_timeout"
	KeyAutosaveInterval = "autosave_interval"
	KeyHistoryDays      = "history_days"
)

// Defaults.
const (
	DefaultAPIURL           = "http://localhost:3000"
	DefaultAPITimeout       = 10 * time.Second
	DefaultAutosaveInterval = 5 * time.Minute
	DefaultHistoryDays      = 7
)

// ErrInvalidSettings wraps every settings problem.
var ErrInvalidSettings = errors.New("invalid settings")

func (c *Config) loadSettings() error {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyAPITimeout, DefaultAPITimeout)
	v.SetDefault(KeyAutosaveInterval, DefaultAutosaveInterval)
	v.SetDefault(KeyHistoryDays, DefaultHistoryDays)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, SettingsFile, err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(std)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, SettingsFile, err)
		}
	}

	c.APIURL = strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/")
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidSettings, KeyAPIURL, c.APIURL)
	}

	if c.APITimeout, err = duration(v, KeyAPITimeout); err != nil {
		return err
	}
	if c.AutosaveInterval, err = duration(v, KeyAutosaveInterval); err != nil {
		return err
	}

	c.HistoryDays = v.GetInt(KeyHistoryDays)
	if c.HistoryDays <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidSettings, KeyHistoryDays)
	}
	return nil
}

// duration reads key as a Go duration string ("30s") or a number of seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	var d time.Duration
	switch val := v.Get(key).(type) {
	case time.Duration:
		d = val
	case float64:
		d = time.Duration(val * float64(time.Second))
	case int:
		d = time.Duration(val) * time.Second
	case int64:
		d = time.Duration(val) * time.Second
	case string:
		s := strings.TrimSpace(val)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(secs * float64(time.Second))
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, key, err)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("%w: %s: unsupported value %v", ErrInvalidSettings, key, val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidSettings, key)
	}
	return d, nil
}
