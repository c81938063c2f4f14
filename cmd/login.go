package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/service"
)

func NewLoginCmd(svc **service.Service) *cobra.Command {
	var withToken, verify bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a personal access token",
		Long: `Store an Azure DevOps personal access token (PAT) for later commands.

The token needs the "Work Items (Read)" and "Project and Team (Read)" scopes.

Examples:
  wi login                                  # Prompt for the token
  echo "$PAT" | wi login --with-token       # Read the token from stdin
  wi login --verify                         # Check the token against your profile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			ctx := cmd.Context()

			var prompter auth.Prompter = auth.NewTerminalPrompter()
			if withToken {
				prompter = auth.ReaderPrompter{R: os.Stdin}
			}

			token, err := prompter.Prompt(ctx, "Enter an Azure DevOps Personal Access Token (PAT): ")
			if err != nil {
				return err
			}
			if err := s.Tokens.Store(auth.ProviderID, token); err != nil {
				return err
			}

			if verify {
				profile, err := s.Profile(ctx)
				if err != nil {
					return explainProfileError(err)
				}
				fmt.Printf("Logged in as %s\n", profile.DisplayName)
				return nil
			}
			fmt.Println("Token stored")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withToken, "with-token", false, "Read the token from standard input")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the token by fetching your profile")

	return cmd
}

func NewLogoutCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored personal access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Tokens.Delete(auth.ProviderID); err != nil {
				return err
			}
			fmt.Println("Token removed")
			return nil
		},
	}
}

func NewWhoamiCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile of the token owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			profile, err := s.Profile(cmd.Context())
			if err != nil {
				return explainProfileError(err)
			}
			fmt.Println(profile.DisplayName)
			if profile.EmailAddress != "" {
				fmt.Println(profile.EmailAddress)
			}
			return nil
		},
	}
}

func explainProfileError(err error) error {
	var te *devops.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w\nthe profile endpoint only accepts tokens created for all accessible organizations", err)
	}
	if errors.Is(err, auth.ErrNoSession) {
		return fmt.Errorf("not logged in; run 'wi login'")
	}
	return err
}
