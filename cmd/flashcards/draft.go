package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/flashcardhero-api/draft"
	"github.com/andrewpaige1/flashcardhero-api/models"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		name  string
		count int
		file  string
	)

	cmd := &cobra.Command{
		Use:   "generate [content...]",
		Short: "Generate draft flashcards from text",
		Long: `Generate flashcards from notes or any text and keep them as a draft.

The draft survives restarts. Review it with "draft show", then save it as a
collection with "draft save" or add cards to an existing one with "draft add".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			a.rememberTab(draft.TabGenerate)

			content := strings.Join(args, " ")
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read content: %w", err)
				}
				content = string(raw)
			}
			if strings.TrimSpace(content) != "" {
				if err := w.SetContent(content); err != nil {
					return err
				}
			}
			if name != "" {
				if err := w.SetName(name); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("count") {
				if err := w.SetCount(count); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.out, "Generating %d flashcards...\n", w.State().Count)
			if err := w.Generate(cmd.Context(), a.remote); err != nil {
				return err
			}
			return runDraftShow(a)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name for the collection the draft will become")
	cmd.Flags().IntVarP(&count, "count", "c", draft.DefaultCount, "Number of flashcards to generate")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from a file")
	return cmd
}

func newDraftCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Review and save generated flashcards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.rememberTab(draft.TabGenerate)
			return runDraftShow(a)
		},
	}

	cmd.AddCommand(newDraftShowCmd(a))
	cmd.AddCommand(newDraftEditCmd(a))
	cmd.AddCommand(newDraftImproveCmd(a))
	cmd.AddCommand(newDraftAddCmd(a))
	cmd.AddCommand(newDraftSaveCmd(a))
	cmd.AddCommand(newDraftClearCmd(a))
	return cmd
}

func newDraftShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.rememberTab(draft.TabGenerate)
			return runDraftShow(a)
		},
	}
}

func runDraftShow(a *app) error {
	w, err := a.openWorkspace()
	if err != nil {
		return err
	}
	st := w.State()
	if strings.TrimSpace(st.Content) == "" && len(st.Flashcards) == 0 {
		fmt.Fprintln(a.out, `No draft. Start one with: flashcards generate "your notes"`)
		return nil
	}
	name := st.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(a.out, "Name:    %s\n", name)
	fmt.Fprintf(a.out, "Content: %s\n", truncate(strings.Join(strings.Fields(st.Content), " "), 70))
	fmt.Fprintf(a.out, "Count:   %d\n\n", st.Count)
	if len(st.Flashcards) == 0 {
		fmt.Fprintln(a.out, "No flashcards generated yet.")
		return nil
	}
	printCards(a.out, st.Flashcards, w.IsAdded)
	fmt.Fprintf(a.out, "\n%d of %d added to a collection\n", w.AddedCount(), len(st.Flashcards))
	return nil
}

// cardArg parses a 1-based card number.
func cardArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid card number %q", s)
	}
	return n - 1, nil
}

func newDraftEditCmd(a *app) *cobra.Command {
	var front, back string

	cmd := &cobra.Command{
		Use:   "edit <card-number>",
		Short: "Edit a draft card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := cardArg(args[0])
			if err != nil {
				return err
			}
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			st := w.State()
			if i >= len(st.Flashcards) {
				return draft.ErrCardIndex
			}
			card := st.Flashcards[i]
			if cmd.Flags().Changed("front") {
				card.Front = front
			}
			if cmd.Flags().Changed("back") {
				card.Back = back
			}
			if err := w.EditCard(i, card); err != nil {
				return err
			}
			printCards(a.out, []models.Card{card}, w.IsAdded)
			return nil
		},
	}
	cmd.Flags().StringVar(&front, "front", "", "New front text")
	cmd.Flags().StringVar(&back, "back", "", "New back text")
	return cmd
}

func newDraftImproveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "improve <card-number>",
		Short: "Ask the model to rewrite a draft card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			i, err := cardArg(args[0])
			if err != nil {
				return err
			}
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			if err := w.ImproveCard(cmd.Context(), a.remote, i); err != nil {
				return err
			}
			printCards(a.out, []models.Card{w.State().Flashcards[i]}, w.IsAdded)
			return nil
		},
	}
}

func newDraftAddCmd(a *app) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "add <card-number|all> --to <collection-id>",
		Short: "Append draft cards to an existing collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			if args[0] == "all" {
				if err := w.AddAllToCollection(cmd.Context(), a.remote, to); err != nil {
					return fmt.Errorf("Failed to add flashcards: %w", err)
				}
				fmt.Fprintf(a.out, "Added %d flashcards to %s\n", len(w.State().Flashcards), to)
				return nil
			}
			i, err := cardArg(args[0])
			if err != nil {
				return err
			}
			if err := w.AddCardToCollection(cmd.Context(), a.remote, to, i); err != nil {
				return fmt.Errorf("Failed to add flashcard: %w", err)
			}
			fmt.Fprintf(a.out, "Added flashcard %d to %s\n", i+1, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target collection id")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newDraftSaveCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the draft as a new private collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			if name != "" {
				if err := w.SetName(name); err != nil {
					return err
				}
			}
			id, err := w.CreateCollection(cmd.Context(), a.remote, a.remote.Subject())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created collection %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Collection name")
	return cmd
}

func newDraftClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard the draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace()
			if err != nil {
				return err
			}
			if err := w.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Draft cleared")
			return nil
		},
	}
}
