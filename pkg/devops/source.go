package devops

import (
	"fmt"
	"net/url"
)

// DefaultAPIVersion is the REST API version sent with every request.
const DefaultAPIVersion = "6.0"

// SourceKind distinguishes cloud-hosted from self-hosted deployments.
type SourceKind string

const (
	KindServices SourceKind = "cloud"
	KindServer   SourceKind = "server"
)

// Source describes one Azure DevOps deployment. Sources are immutable and are
// never merged; each one becomes an independent root of the tree.
type Source interface {
	Name() string
	BaseURL() *url.URL
	APIVersion() string
	Kind() SourceKind
}

// ServicesSource is a cloud-hosted organization on dev.azure.com.
type ServicesSource struct {
	Organization string
	base         *url.URL
}

// NewServicesSource creates a source for the given organization.
func NewServicesSource(organization string) (*ServicesSource, error) {
	if organization == "" {
		return nil, fmt.Errorf("organization is required")
	}
	base, err := url.Parse(fmt.Sprintf("https://dev.azure.com/%s/", url.PathEscape(organization)))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &ServicesSource{Organization: organization, base: base}, nil
}

func (s *ServicesSource) Name() string       { return s.Organization }
func (s *ServicesSource) APIVersion() string { return DefaultAPIVersion }
func (s *ServicesSource) Kind() SourceKind   { return KindServices }

// BaseURL returns a copy so callers cannot mutate the source.
func (s *ServicesSource) BaseURL() *url.URL {
	u := *s.base
	return &u
}

// ServerSource is a self-hosted Azure DevOps Server collection.
type ServerSource struct {
	Scheme     string
	Instance   string
	Collection string
	Port       int
	base       *url.URL
}

const (
	DefaultCollection = "DefaultCollection"
	DefaultServerPort = 8080
)

// NewServerSource creates a source for a self-hosted instance. Empty collection
// and zero port fall back to DefaultCollection and DefaultServerPort.
func NewServerSource(scheme, instance, collection string, port int) (*ServerSource, error) {
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q (expected http or https)", scheme)
	}
	if instance == "" {
		return nil, fmt.Errorf("instance is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if port == 0 {
		port = DefaultServerPort
	}

	base, err := url.Parse(fmt.Sprintf("%s://%s:%d/%s/", scheme, instance, port, url.PathEscape(collection)))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	return &ServerSource{
		Scheme:     scheme,
		Instance:   instance,
		Collection: collection,
		Port:       port,
		base:       base,
	}, nil
}

// Name is the full base URL; a server has no organization to show instead.
func (s *ServerSource) Name() string       { return s.base.String() }
func (s *ServerSource) APIVersion() string { return DefaultAPIVersion }
func (s *ServerSource) Kind() SourceKind   { return KindServer }

func (s *ServerSource) BaseURL() *url.URL {
	u := *s.base
	return &u
}
