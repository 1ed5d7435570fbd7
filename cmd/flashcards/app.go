package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/andrewpaige1/flashcardhero-api/client"
	"github.com/andrewpaige1/flashcardhero-api/config"
	"github.com/andrewpaige1/flashcardhero-api/draft"
	"github.com/andrewpaige1/flashcardhero-api/kv"
)

// app holds what every command shares: the loaded config, the API client
// and the local draft storage, opened on first use.
type app struct {
	in  io.Reader
	out io.Writer

	configPath string
	cfg        config.Client
	remote     *client.Remote

	storage   *kv.Badger
	workspace *draft.Workspace
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out}
}

func (a *app) load() error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	remote, err := client.New(cfg.ServerURL, cfg.Token, client.WithReconnect(0))
	if err != nil {
		return fmt.Errorf("invalid token in config, run login again: %w", err)
	}
	a.cfg, a.remote = cfg, remote
	return nil
}

// requireLogin fails for anonymous callers.
func (a *app) requireLogin() error {
	if a.remote.Subject() == "" {
		return fmt.Errorf("not logged in, run: flashcards login <nickname>")
	}
	return nil
}

func (a *app) openStorage() (*kv.Badger, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	storage, err := kv.OpenBadger(a.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	a.storage = storage
	return storage, nil
}

func (a *app) openWorkspace() (*draft.Workspace, error) {
	if a.workspace != nil {
		return a.workspace, nil
	}
	storage, err := a.openStorage()
	if err != nil {
		return nil, err
	}
	w, err := draft.Open(draft.NewCache(storage))
	if err != nil {
		return nil, err
	}
	a.workspace = w
	return w, nil
}

// rememberTab stores tab as the view to open when no command is given.
// Failures are reported but never fail the command.
func (a *app) rememberTab(tab string) {
	storage, err := a.openStorage()
	if err == nil {
		err = draft.SaveTab(storage, tab)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not remember view: %v\n", err)
	}
}

func (a *app) close() {
	if a.storage != nil {
		a.storage.Close()
		a.storage = nil
	}
}

// interruptible returns a context canceled on Ctrl-C.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
