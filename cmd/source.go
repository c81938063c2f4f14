package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-workitems/pkg/models"
	"github.com/mattsolo1/grove-workitems/pkg/service"
	"github.com/mattsolo1/grove-workitems/pkg/sources"
)

func NewSourceCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "source",
		Aliases: []string{"sources"},
		Short:   "Manage Azure DevOps sources",
		Long: `Manage the Azure DevOps deployments shown as roots of the tree.

Sources come from two places: the 'sources' list in the config file and the
local registry managed by these commands. Config entries win on a name clash.`,
	}

	cmd.AddCommand(newSourceAddCmd(svc))
	cmd.AddCommand(newSourceListCmd(svc))
	cmd.AddCommand(newSourceRemoveCmd(svc))

	return cmd
}

func newSourceAddCmd(svc **service.Service) *cobra.Command {
	var cfg models.SourceConfig
	var sourceType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a source",
		Long: `Register a cloud organization or a self-hosted server collection.

Examples:
  wi source add contoso --organization contoso
  wi source add onprem --instance tfs.local --collection Main --port 8080 --scheme http`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			cfg.Name = args[0]
			cfg.Type = models.SourceType(sourceType)
			cfg.CreatedAt = time.Now()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := cfg.Source(); err != nil {
				return err
			}
			if err := s.Registry.Add(cfg); err != nil {
				return err
			}

			fmt.Printf("Added source '%s'\n", cfg.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceType, "type", "", "Source type: services or server (inferred when omitted)")
	cmd.Flags().StringVar(&cfg.Organization, "organization", "", "Organization on dev.azure.com")
	cmd.Flags().StringVar(&cfg.Instance, "instance", "", "Host name of a self-hosted server")
	cmd.Flags().StringVar(&cfg.Collection, "collection", "", "Collection of a self-hosted server (default DefaultCollection)")
	cmd.Flags().IntVar(&cfg.Port, "port", 0, "Port of a self-hosted server (default 8080)")
	cmd.Flags().StringVar(&cfg.Scheme, "scheme", "", "http or https (default https)")

	return cmd
}

func newSourceListCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			configs, err := s.SourceConfigs()
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println("No sources configured")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tURL")
			fmt.Fprintln(w, "----\t----\t---")
			for _, c := range configs {
				u := "-"
				if src, err := c.Source(); err == nil {
					u = src.BaseURL().String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Type, u)
			}
			return w.Flush()
		},
	}
	return cmd
}

func newSourceRemoveCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a registered source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if err := s.Registry.Remove(args[0]); err != nil {
				if errors.Is(err, sources.ErrNotFound) {
					return fmt.Errorf("source '%s' is not registered (sources from the config file must be removed there)", args[0])
				}
				return err
			}
			fmt.Printf("Removed source '%s'\n", args[0])
			return nil
		},
	}
	return cmd
}
