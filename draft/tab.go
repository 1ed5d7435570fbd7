package draft

import (
	"fmt"

	"github.com/andrewpaige1/flashcardhero-api/kv"
)

// ActiveTabKey stores which dashboard view the user last had open.
const ActiveTabKey = "flashcardhero_active_tab"

// Dashboard views.
const (
	TabCollections = "collections"
	TabGenerate    = "generate"
	TabProfile     = "profile"
)

// LoadTab returns the remembered view, TabCollections when none is stored
// or the stored one is unknown.
func LoadTab(storage kv.Storage) (string, error) {
	tab, ok, err := storage.Get(ActiveTabKey)
	if err != nil {
		return TabCollections, fmt.Errorf("load active tab: %w", err)
	}
	if !ok || !validTab(tab) {
		return TabCollections, nil
	}
	return tab, nil
}

// SaveTab remembers tab.
func SaveTab(storage kv.Storage, tab string) error {
	if !validTab(tab) {
		return fmt.Errorf("unknown tab %q", tab)
	}
	if err := storage.Set(ActiveTabKey, tab); err != nil {
		return fmt.Errorf("save active tab: %w", err)
	}
	return nil
}

func validTab(tab string) bool {
	switch tab {
	case TabCollections, TabGenerate, TabProfile:
		return true
	}
	return false
}
