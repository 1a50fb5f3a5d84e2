package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]bool, len(c.Sources.Export))
	for i, exp := range c.Sources.Export {
		if exp.ID == "" {
			return fmt.Errorf("sources.export[%d].id must be set", i)
		}
		if seen[exp.ID] {
			return fmt.Errorf("sources.export[%d].id %q is declared twice", i, exp.ID)
		}
		seen[exp.ID] = true
		if exp.Dir == "" {
			return fmt.Errorf("sources.export[%d].dir must be set", i)
		}
	}

	ids := c.ExportIDs()
	for _, id := range c.Sources.Whitelist {
		if !slices.Contains(ids, id) {
			return fmt.Errorf("sources.whitelist: unknown source %q", id)
		}
	}
	for _, id := range c.Sources.Blacklist {
		if !slices.Contains(ids, id) {
			return fmt.Errorf("sources.blacklist: unknown source %q", id)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.New("logging.format must be text or json")
	}
	return nil
}
