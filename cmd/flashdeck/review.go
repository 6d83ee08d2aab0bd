package main

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashdeck/internal/client"
	"flashdeck/internal/config"
	"flashdeck/internal/tui"
)

func newReviewCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "review <deck-id>",
		Short: "Review a deck in the terminal",
		Long: `Sign in to a running flashdeck server and cycle through a deck's cards.

Keys: space flips, right/left move, r reloads, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deckID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || deckID <= 0 {
				return errors.Errorf("invalid deck id %q", args[0])
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			a, err := setup(cmd, config.ReviewFields)
			if err != nil {
				return err
			}
			return a.review(cmd.Context(), deckID, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) review(ctx context.Context, deckID int64, email, password string) error {
	c := client.New(a.cfg.APIURL)
	if _, err := c.Login(ctx, email, password); err != nil {
		return errors.Wrap(err, "sign in")
	}
	defer func() {
		lctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Logout(lctx); err != nil {
			a.log.Warn("sign out", zap.Error(err))
		}
	}()

	me, err := c.Me(ctx)
	if err != nil {
		return errors.Wrap(err, "load preferences")
	}

	m := tui.New(ctx, c, deckID, tui.NewStyles(me.Preferences.DarkMode))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run review")
	}
	return nil
}
