package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/andrewpaige1/flashcardhero-api/auth"
	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/store"
	"github.com/andrewpaige1/flashcardhero-api/validation"
)

// DBHandler serves the collection API.
type DBHandler struct {
	*gorm.DB
	Collections store.CollectionStore
	Sync        *collectionsync.Syncer
	Generator   generation.Generator
	// Issuer is only set when development logins are enabled.
	Issuer *auth.Issuer

	validate *validator.Validate
	limits   *limiter
}

// NewDBHandler wires a handler. generatePerMinute bounds generate and
// improve calls per caller; zero disables the limit.
func NewDBHandler(db *gorm.DB, collections store.CollectionStore, gen generation.Generator, generatePerMinute int) *DBHandler {
	return &DBHandler{
		DB:          db,
		Collections: collections,
		Sync:        collectionsync.New(collections),
		Generator:   gen,
		validate:    validator.New(),
		limits:      newLimiter(generatePerMinute),
	}
}

// decode reads a JSON body into v and checks its validate tags.
func (db *DBHandler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("Invalid request body: %v", err)
	}
	if err := db.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("Invalid field %s: failed %s", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// writeError maps an error to a status and logs it under op.
func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "Collection not found"
	case errors.Is(err, store.ErrInvalidFilter):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, generation.ErrGenerationFailed):
		status, message = http.StatusBadGateway, err.Error()
	default:
		if verr, ok := validation.AsValidationError(err); ok {
			status, message = http.StatusBadRequest, verr.Error()
		}
	}

	log.Printf("%s: status=%d: %v", op, status, err)
	http.Error(w, message, status)
}

// limiter hands out one token bucket per caller.
type limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	callers map[string]*rate.Limiter
}

func newLimiter(perMinute int) *limiter {
	if perMinute <= 0 {
		return nil
	}
	return &limiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		callers: make(map[string]*rate.Limiter),
	}
}

func (l *limiter) allow(caller string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.callers[caller]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.callers[caller] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
