package trail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/breadcrumb/ancestry"
)

// ErrInvalidConfig indicates a Config that cannot render a trail.
var ErrInvalidConfig = errors.New("trail: invalid config")

// Config controls trail rendering.
type Config struct {
	// Delimiter separates trail elements. It is emitted verbatim.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`

	// MaxCount is the most elements shown before truncation. Zero disables
	// truncation.
	MaxCount int `mapstructure:"max_count" yaml:"max_count"`

	// OverflowMarker replaces the elements removed by truncation.
	OverflowMarker string `mapstructure:"overflow_marker" yaml:"overflow_marker"`

	// SelfLink renders the current page as a link instead of plain text.
	SelfLink bool `mapstructure:"self_link" yaml:"self_link"`

	// ContainerID is the id attribute of the wrapping div.
	ContainerID string `mapstructure:"container_id" yaml:"container_id"`

	// FillNewPages preloads an empty breadcrumb tag into new pages.
	FillNewPages bool `mapstructure:"fill_new_pages" yaml:"fill_new_pages"`

	// MaxDepth bounds the number of ancestors walked.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Delimiter:      " &gt; ",
		MaxCount:       5,
		OverflowMarker: "&hellip;",
		ContainerID:    "breadcrumb",
		FillNewPages:   true,
		MaxDepth:       ancestry.DefaultMaxDepth,
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.MaxCount < 0 {
		return fmt.Errorf("%w: max_count must not be negative, got %d", ErrInvalidConfig, c.MaxCount)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if strings.TrimSpace(c.ContainerID) == "" {
		return fmt.Errorf("%w: container_id is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.ContainerID, " \t\r\n\"'<>&") {
		return fmt.Errorf("%w: container_id %q is not a valid HTML id", ErrInvalidConfig, c.ContainerID)
	}
	return nil
}
