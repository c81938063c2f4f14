package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/icons"
	"github.com/mattsolo1/grove-workitems/pkg/models"
	"github.com/mattsolo1/grove-workitems/pkg/sources"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
	"github.com/mattsolo1/grove-workitems/pkg/workitems"
	"github.com/sirupsen/logrus"
)

// Service wires the remote client, caches and the tree together.
type Service struct {
	Config   *Config
	Client   *devops.Client
	Icons    *icons.Cache
	Registry *sources.Registry
	Tokens   *auth.TokenStore
	Logger   *logrus.Entry

	builder  *workitems.Builder
	provider *tree.Provider
}

// Config holds service configuration
type Config struct {
	DataDir      string
	Token        string
	HTTPTimeout  time.Duration
	MaxBatchSize int
	MaxURLLength int
	ProfileURL   string
	Sources      []models.SourceConfig

	// Prompter asks for a token when none is stored. Nil disables prompting.
	Prompter auth.Prompter
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// New creates a new service
func New(config *Config, logger *logrus.Entry) (*Service, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	if config.ProfileURL == "" {
		config.ProfileURL = devops.DefaultProfileURL
	}

	registry, err := sources.NewRegistry(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open source registry: %w", err)
	}

	storeOpts := []auth.StoreOption{
		auth.WithOverrideToken(config.Token),
		auth.WithLogger(logger.WithField("component", "auth")),
	}
	if config.Prompter != nil {
		storeOpts = append(storeOpts, auth.WithPrompter(config.Prompter))
	}
	tokens := auth.NewTokenStore(filepath.Join(config.DataDir, "secrets.yaml"), storeOpts...)

	clientOpts := []devops.ClientOption{
		devops.WithLogger(logger.WithField("component", "devops")),
		devops.WithBatchOptions(devops.BatchOptions{
			MaxBatchSize: config.MaxBatchSize,
			MaxURLLength: config.MaxURLLength,
		}),
	}
	if config.HTTPClient != nil {
		clientOpts = append(clientOpts, devops.WithHTTPClient(config.HTTPClient))
	}
	if config.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, devops.WithTimeout(config.HTTPTimeout))
	}
	client := devops.NewClient(tokens, clientOpts...)

	iconCache := icons.New(filepath.Join(config.DataDir, "icons"), logger.WithField("component", "icons"))
	if err := iconCache.Load(); err != nil {
		logger.WithError(err).Warn("Could not load cached icons")
	}

	return &Service{
		Config:   config,
		Client:   client,
		Icons:    iconCache,
		Registry: registry,
		Tokens:   tokens,
		Logger:   logger,
		builder:  workitems.NewBuilder(client, iconCache, logger.WithField("component", "tree")),
		provider: tree.NewProvider(nil),
	}, nil
}

// SourceConfigs returns configured and registered sources, configured first.
func (s *Service) SourceConfigs() ([]models.SourceConfig, error) {
	registered, err := s.Registry.List()
	if err != nil {
		return nil, fmt.Errorf("list registered sources: %w", err)
	}
	return sources.Merge(s.Config.Sources, registered), nil
}

// Sources returns every source as a devops.Source.
func (s *Service) Sources() ([]devops.Source, error) {
	configs, err := s.SourceConfigs()
	if err != nil {
		return nil, err
	}
	return sources.Build(configs)
}

// BuildRoots creates a fresh, unloaded source node for every source.
func (s *Service) BuildRoots(ctx context.Context) ([]*tree.Node, error) {
	srcs, err := s.Sources()
	if err != nil {
		return nil, err
	}
	return s.builder.Roots(srcs), nil
}

// Tree returns the provider serving the current roots. It is empty until
// Refresh succeeds.
func (s *Service) Tree() *tree.Provider {
	return s.provider
}

// Refresh discards the whole tree and rebuilds the roots from the current
// sources. On failure the previous tree keeps being served.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.provider.RefreshWith(ctx, s.BuildRoots); err != nil {
		return fmt.Errorf("refresh tree: %w", err)
	}
	return nil
}

// Profile checks the stored token against the profile endpoint.
func (s *Service) Profile(ctx context.Context) (*devops.Profile, error) {
	return s.Client.Profile(ctx, s.Config.ProfileURL)
}

// Close releases the registry and idle connections.
func (s *Service) Close() error {
	s.Client.Close()
	return s.Registry.Close()
}
