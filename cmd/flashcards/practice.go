package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/practice"
)

const practiceHelp = "[Enter/f] flip  [n] next  [p] previous  [s] shuffle  [q] quit"

func newPracticeCmd(a *app) *cobra.Command {
	var shuffle bool

	cmd := &cobra.Command{
		Use:   "practice <collection-id>",
		Short: "Practice a collection one card at a time",
		Long: `Practice a collection one card at a time.

The session follows the collection live: edits made elsewhere show up
immediately. A shuffled order is kept and you stay on the current card
unless it was removed.

` + practiceHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			live, err := practice.Follow(collectionsync.New(a.remote), args[0], a.remote.Subject())
			if err != nil {
				return err
			}
			defer live.Close()
			return runPractice(ctx, live, a.in, a.out, shuffle)
		},
	}
	cmd.Flags().BoolVarP(&shuffle, "shuffle", "s", false, "Shuffle the deck before starting")
	return cmd
}

// runPractice drives live from line commands on in until quit, end of
// input or ctx ends.
func runPractice(ctx context.Context, live *practice.Live, in io.Reader, out io.Writer, shuffle bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	started := false
	for {
		// Input waits until the first delivery has started the session.
		var input <-chan string
		if started {
			input = lines
		}

		select {
		case <-ctx.Done():
			return nil

		case <-live.Updates():
			err := live.Do(func(s *practice.Session) {
				if !started && shuffle {
					s.Shuffle()
				}
				started = true
			})
			if errors.Is(err, practice.ErrCollectionNotFound) || errors.Is(err, practice.ErrPrivateCollection) {
				return err
			}
			if err != nil && !errors.Is(err, practice.ErrNotReady) {
				fmt.Fprintf(out, "Connection problem: %v\n", err)
				continue
			}
			if c := live.Collection(); c != nil && started {
				fmt.Fprintf(out, "\n%s\n%s\n", c.Name, practiceHelp)
				render(live, out)
			}

		case line, ok := <-input:
			if !ok {
				return nil
			}
			quit := false
			err := live.Do(func(s *practice.Session) {
				switch line {
				case "", "f":
					s.Flip()
				case "n":
					if !s.Next() {
						fmt.Fprintln(out, "Last card.")
					}
				case "p":
					if !s.Previous() {
						fmt.Fprintln(out, "First card.")
					}
				case "s":
					s.Shuffle()
					fmt.Fprintln(out, "Shuffled.")
				case "q":
					quit = true
				default:
					fmt.Fprintln(out, practiceHelp)
				}
			})
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			render(live, out)
		}
	}
}

func render(live *practice.Live, out io.Writer) {
	live.Do(func(s *practice.Session) {
		fmt.Fprintf(out, "%s [%s]\n  %s\n", s.Progress(), s.Face(), s.Shown())
	})
}
