package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/service"
	"github.com/mattsolo1/grove-workitems/pkg/sources"
)

var (
	cfgFile string
	verbose bool
	token   string
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "wi")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("WI")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("data_dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "wi"))
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("http.timeout", 30*time.Second)
	viper.SetDefault("batch.max_ids", devops.DefaultMaxBatchSize)
	viper.SetDefault("batch.max_url_length", devops.DefaultMaxURLLength)
	viper.SetDefault("profile_url", devops.DefaultProfileURL)

	// A missing config file is fine; everything has a default.
	_ = viper.ReadInConfig()
}

// NewLogger creates the logger for the process. --verbose forces debug level.
func NewLogger() (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	return logrus.NewEntry(logger), nil
}

// ServiceConfig builds the service configuration from viper.
func ServiceConfig() (*service.Config, error) {
	configured, err := sources.Decode(viper.Get("sources"))
	if err != nil {
		return nil, err
	}

	tok := token
	if tok == "" {
		tok = viper.GetString("token")
	}

	return &service.Config{
		DataDir:      viper.GetString("data_dir"),
		Token:        tok,
		HTTPTimeout:  viper.GetDuration("http.timeout"),
		MaxBatchSize: viper.GetInt("batch.max_ids"),
		MaxURLLength: viper.GetInt("batch.max_url_length"),
		ProfileURL:   viper.GetString("profile_url"),
		Sources:      configured,
		Prompter:     auth.NewTerminalPrompter(),
	}, nil
}

func InitService() (*service.Service, error) {
	logger, err := NewLogger()
	if err != nil {
		return nil, err
	}
	config, err := ServiceConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return service.New(config, logger)
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wi/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&token, "token", "", "Personal access token to use instead of the stored one (or set WI_TOKEN)")
}
