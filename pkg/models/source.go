package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattsolo1/grove-workitems/pkg/devops"
)

// SourceType selects between cloud and self-hosted deployments.
type SourceType string

const (
	SourceTypeServices SourceType = "services"
	SourceTypeServer   SourceType = "server"
)

// SourceConfig describes a configured Azure DevOps deployment, either from
// the config file or from the source registry.
type SourceConfig struct {
	Name         string     `mapstructure:"name" yaml:"name" json:"name"`
	Type         SourceType `mapstructure:"type" yaml:"type" json:"type"`
	Organization string     `mapstructure:"organization" yaml:"organization,omitempty" json:"organization,omitempty"`
	Scheme       string     `mapstructure:"scheme" yaml:"scheme,omitempty" json:"scheme,omitempty"`
	Instance     string     `mapstructure:"instance" yaml:"instance,omitempty" json:"instance,omitempty"`
	Collection   string     `mapstructure:"collection" yaml:"collection,omitempty" json:"collection,omitempty"`
	Port         int        `mapstructure:"port" yaml:"port,omitempty" json:"port,omitempty"`
	CreatedAt    time.Time  `mapstructure:"-" yaml:"-" json:"created_at,omitempty"`
}

// Validate checks the fields required by the source type and fills in the
// name and scheme defaults.
func (c *SourceConfig) Validate() error {
	if c.Type == "" {
		if c.Instance != "" {
			c.Type = SourceTypeServer
		} else {
			c.Type = SourceTypeServices
		}
	}

	switch c.Type {
	case SourceTypeServices:
		if c.Organization == "" {
			return fmt.Errorf("source of type %q requires an organization", c.Type)
		}
		if c.Name == "" {
			c.Name = c.Organization
		}
	case SourceTypeServer:
		if c.Instance == "" {
			return fmt.Errorf("source of type %q requires an instance", c.Type)
		}
		if c.Scheme == "" {
			c.Scheme = "https"
		}
		c.Scheme = strings.ToLower(c.Scheme)
		if c.Name == "" {
			// Several collections can live on one instance, so the name is the
			// full base URL.
			s, err := devops.NewServerSource(c.Scheme, c.Instance, c.Collection, c.Port)
			if err != nil {
				return err
			}
			c.Name = s.Name()
		}
	default:
		return fmt.Errorf("unknown source type %q (expected %q or %q)", c.Type, SourceTypeServices, SourceTypeServer)
	}
	return nil
}

// Source builds the immutable source described by the config.
func (c SourceConfig) Source() (devops.Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Type == SourceTypeServer {
		s, err := devops.NewServerSource(c.Scheme, c.Instance, c.Collection, c.Port)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := devops.NewServicesSource(c.Organization)
	if err != nil {
		return nil, err
	}
	return s, nil
}
