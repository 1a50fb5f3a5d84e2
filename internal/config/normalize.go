package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLibrary() error {
	if strings.TrimSpace(c.Library.Database) == "" {
		c.Library.Database = defaultDatabasePath
	}
	// SQLite's in-memory name is not a path.
	if c.Library.Database == ":memory:" {
		return nil
	}
	var err error
	if c.Library.Database, err = expandPath(c.Library.Database); err != nil {
		return fmt.Errorf("library.database: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() error {
	c.Sources.Whitelist = normalizeIDs(c.Sources.Whitelist)
	c.Sources.Blacklist = normalizeIDs(c.Sources.Blacklist)
	for i := range c.Sources.Export {
		exp := &c.Sources.Export[i]
		exp.ID = strings.ToLower(strings.TrimSpace(exp.ID))
		var err error
		if exp.Dir, err = expandPath(strings.TrimSpace(exp.Dir)); err != nil {
			return fmt.Errorf("sources.export[%d].dir: %w", i, err)
		}
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
