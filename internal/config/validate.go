package config

import (
	"errors"
	"fmt"
	"strings"

	"sdmeta/internal/imageconv"
	"sdmeta/internal/pathmap"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	return c.validateExtract()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateConvert() error {
	if _, err := imageconv.ParseFormat(c.Convert.Format); err != nil {
		return fmt.Errorf("convert.format: %w", err)
	}
	if _, err := pathmap.ParseLayout(c.Convert.Layout); err != nil {
		return fmt.Errorf("convert.layout: %w", err)
	}
	if c.Convert.Workers < 0 {
		return errors.New("convert.workers must be zero (auto) or positive")
	}
	if c.Convert.JPEGQuality < 1 || c.Convert.JPEGQuality > 100 {
		return errors.New("convert.jpeg_quality must be between 1 and 100")
	}
	for _, dir := range c.Convert.ExcludeDirs {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("convert.exclude_dirs: %q must be a directory name, not a path", dir)
		}
	}
	return nil
}

func (c *Config) validateExtract() error {
	for i, fragment := range c.Extract.StopList {
		if strings.TrimSpace(fragment) == "" {
			return fmt.Errorf("extract.stop_list[%d] must not be blank", i)
		}
	}
	return nil
}
