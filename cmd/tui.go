package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-workitems/internal/tui/browser"
	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/mattsolo1/grove-workitems/pkg/service"
)

// NewTuiCmd creates the `wi tui` command.
func NewTuiCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse work items interactively",
		Long: `Launch an interactive Terminal User Interface for browsing sources,
projects and open work items. Children are loaded when a node is first expanded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for TTY
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			// The TUI owns stdin once it runs, so any token prompt happens now.
			if err := ensureSession(cmd.Context(), (*svc).Tokens); err != nil {
				return err
			}

			model := browser.New(cmd.Context(), *svc)
			defer model.Close()
			p := tea.NewProgram(model, tea.WithAltScreen())

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}

			return nil
		},
	}
	return cmd
}

// ensureSession obtains a token, prompting if needed, and then disables
// prompting so a later missing token surfaces as ErrNoSession.
func ensureSession(ctx context.Context, tokens *auth.TokenStore) error {
	if _, err := tokens.GetSession(ctx, auth.ProviderID, auth.SessionOptions{CreateIfNone: true}); err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	tokens.DisablePrompt()
	return nil
}
