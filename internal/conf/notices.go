package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
)

// NoticesConfig contains the chat notices and the emoticon list loaded from YAML
type NoticesConfig struct {
	Commands  CommandNotices   `yaml:"commands"`
	Downgrade DowngradeNotices `yaml:"downgrade"`
	Emoticons []string         `yaml:"emoticons"`
}

// CommandNotices are posted in reply to /command OK and /command NO
type CommandNotices struct {
	Enabled          string `yaml:"enabled"`
	AlreadyEnabled   string `yaml:"already_enabled"`
	Disabled         string `yaml:"disabled"`
	PermissionDenied string `yaml:"permission_denied"`
	EnableFailed     string `yaml:"enable_failed"`
	DisableFailed    string `yaml:"disable_failed"`
}

// DowngradeNotices are posted after a sender is made readonly; {account_id} is substituted
type DowngradeNotices struct {
	Broadcast string `yaml:"broadcast"`
	Stamp     string `yaml:"stamp"`
	Mention   string `yaml:"mention"`
}

// LoadNoticesConfig loads notices configuration from a YAML file.
// With an empty path the usual locations are searched and defaults are used when none exists.
func LoadNoticesConfig(configPath string) (*NoticesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/notices.yaml",
			"/etc/chatwork-moderator/notices.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "notices.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
		slog.Debug("no notices.yaml found, using defaults")
		return DefaultNoticesConfig(), nil
	}

	slog.Info("loading notices", "path", loadedPath)

	var config NoticesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *NoticesConfig) fillDefaults() {
	filled := c.ToNotices().WithDefaults()
	*c = fromNotices(filled, c.Emoticons)
	if len(c.Emoticons) == 0 {
		c.Emoticons = domain.DefaultEmoticons
	}
}

// ToNotices converts to usecase notices
func (c *NoticesConfig) ToNotices() usecase.Notices {
	return usecase.Notices{
		Enabled:            c.Commands.Enabled,
		AlreadyEnabled:     c.Commands.AlreadyEnabled,
		Disabled:           c.Commands.Disabled,
		PermissionDenied:   c.Commands.PermissionDenied,
		EnableFailed:       c.Commands.EnableFailed,
		DisableFailed:      c.Commands.DisableFailed,
		BroadcastDowngrade: c.Downgrade.Broadcast,
		StampDowngrade:     c.Downgrade.Stamp,
		MentionDowngrade:   c.Downgrade.Mention,
	}
}

// DefaultNoticesConfig returns the built-in notices
func DefaultNoticesConfig() *NoticesConfig {
	c := fromNotices(usecase.DefaultNotices, domain.DefaultEmoticons)
	return &c
}

func fromNotices(n usecase.Notices, emoticons []string) NoticesConfig {
	return NoticesConfig{
		Commands: CommandNotices{
			Enabled:          n.Enabled,
			AlreadyEnabled:   n.AlreadyEnabled,
			Disabled:         n.Disabled,
			PermissionDenied: n.PermissionDenied,
			EnableFailed:     n.EnableFailed,
			DisableFailed:    n.DisableFailed,
		},
		Downgrade: DowngradeNotices{
			Broadcast: n.BroadcastDowngrade,
			Stamp:     n.StampDowngrade,
			Mention:   n.MentionDowngrade,
		},
		Emoticons: emoticons,
	}
}
