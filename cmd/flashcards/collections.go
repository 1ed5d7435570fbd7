package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/draft"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
	"github.com/andrewpaige1/flashcardhero-api/validation"
)

func newCollectionsCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"ls"},
		Short:   "List your collections",
		Long:    "List your collections, newest first. With --watch the list is redrawn on every change until Ctrl-C.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.rememberTab(draft.TabCollections)
			return runCollections(cmd.Context(), a, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the list live")
	return cmd
}

func runCollections(ctx context.Context, a *app, watch bool) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	filter := store.ByOwner(a.remote.Subject())
	if !watch {
		list, err := a.remote.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
		printCollections(a.out, list, time.Now())
		return nil
	}

	ctx, cancel := interruptible(ctx)
	defer cancel()
	var mu sync.Mutex
	sub, err := collectionsync.New(a.remote).SubscribeContext(ctx, filter,
		func(list []models.Collection) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(a.out, "\n-- %s --\n", time.Now().Format(time.Kitchen))
			printCollections(a.out, list, time.Now())
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "Failed to load collections: %v\n", err)
		},
	)
	if err != nil {
		return fmt.Errorf("watch collections: %w", err)
	}
	<-sub.Done()
	return nil
}

func newBrowseCmd(a *app) *cobra.Command {
	var (
		query string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a random sample of public collections",
		Long: `Show up to 12 random public collections.

With --watch the sample stays live: type "s" and Enter to shuffle, "q" to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				list, err := a.remote.Browse(cmd.Context(), query, collectionsync.DefaultSampleSize)
				if err != nil {
					return fmt.Errorf("browse: %w", err)
				}
				printCollections(a.out, list, time.Now())
				return nil
			}
			return watchPublic(cmd.Context(), a, query)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only show collections whose name or description contains this")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the sample live")
	return cmd
}

func watchPublic(ctx context.Context, a *app, query string) error {
	ctx, cancel := interruptible(ctx)
	defer cancel()

	sampler := collectionsync.NewSampler(collectionsync.DefaultSampleSize)
	var mu sync.Mutex
	show := func(list []models.Collection) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(a.out, "\n-- %s --\n", time.Now().Format(time.Kitchen))
		printCollections(a.out, list, time.Now())
	}

	sub, err := collectionsync.New(a.remote).SubscribeContext(ctx, store.Public(),
		func(list []models.Collection) {
			show(sampler.Apply(collectionsync.Search(list, query)))
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "Failed to load public collections: %v\n", err)
		},
	)
	if err != nil {
		return fmt.Errorf("watch public collections: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "s":
				show(sampler.Shuffle())
			case "q":
				cancel()
				return
			}
		}
		cancel()
	}()
	<-sub.Done()
	return nil
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <collection-id>",
		Short: "Show a collection and its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.remote.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get collection: %w", err)
			}
			fmt.Fprintf(a.out, "%s (%s)\n", c.Name, c.Visibility)
			if c.Description != "" {
				fmt.Fprintln(a.out, c.Description)
			}
			fmt.Fprintf(a.out, "Created %s\n\n", formatDate(c.CreatedAt, time.Now()))
			printCards(a.out, c.Cards, nil)
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		in     models.CollectionInput
		public bool
		cards  []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collection",
		Example: `  flashcards create --name "Spanish" --card "hola::hello" --card "adiós::goodbye"
  flashcards create --name "Capitals" --public --card "France::Paris"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			for _, raw := range cards {
				card, err := parseCard(raw)
				if err != nil {
					return err
				}
				in.Cards = append(in.Cards, card)
			}
			in.Name = strings.TrimSpace(in.Name)
			in.Visibility = models.VisibilityPrivate
			if public {
				in.Visibility = models.VisibilityPublic
			}
			if err := validation.ValidateInput(in); err != nil {
				return err
			}

			id, err := a.remote.Create(cmd.Context(), a.remote.Subject(), in)
			if err != nil {
				return fmt.Errorf("Failed to create collection: %w", err)
			}
			fmt.Fprintf(a.out, "Created collection %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "Collection name")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Collection description")
	cmd.Flags().BoolVar(&public, "public", false, "List the collection publicly")
	cmd.Flags().StringArrayVarP(&cards, "card", "c", nil, "A card as front::back (repeatable)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete one of your collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.remote.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("Failed to delete collection: %w", err)
			}
			fmt.Fprintf(a.out, "Deleted collection %s\n", args[0])
			return nil
		},
	}
}
