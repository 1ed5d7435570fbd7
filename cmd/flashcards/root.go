package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/flashcardhero-api/config"
	"github.com/andrewpaige1/flashcardhero-api/draft"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "flashcards",
		Short: "Study, browse and generate flashcard collections",
		Long: `Manage flashcard collections on a FlashcardHero server.

Without a command, flashcards opens the view you used last:
your collections, the generation draft or your profile.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := a.openStorage()
			if err != nil {
				return err
			}
			tab, err := draft.LoadTab(storage)
			if err != nil {
				return err
			}
			switch tab {
			case draft.TabGenerate:
				return runDraftShow(a)
			case draft.TabProfile:
				return runWhoami(a)
			default:
				return runCollections(cmd.Context(), a, false)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.config/flashcards/config.toml)")

	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))
	root.AddCommand(newWhoamiCmd(a))
	root.AddCommand(newCollectionsCmd(a))
	root.AddCommand(newBrowseCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newDraftCmd(a))
	root.AddCommand(newPracticeCmd(a))
	return root
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <nickname>",
		Short: "Sign in through the server's development login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, token, err := a.remote.Login(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			a.cfg.Token = token
			if err := saveConfig(a); err != nil {
				return err
			}
			a.remote = remote
			fmt.Fprintf(a.out, "Logged in as %s\n", args[0])
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Token = ""
			if err := saveConfig(a); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"profile"},
		Short:   "Show the signed-in user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.rememberTab(draft.TabProfile)
			return runWhoami(a)
		},
	}
}

func runWhoami(a *app) error {
	fmt.Fprintf(a.out, "Server: %s\n", a.cfg.ServerURL)
	if a.remote.Subject() == "" {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "User:   %s\n", a.remote.Subject())
	return nil
}

func saveConfig(a *app) error {
	if err := config.SaveClient(a.configPath, a.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
