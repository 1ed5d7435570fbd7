package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/andrewpaige1/flashcardhero-api/auth"
	"github.com/andrewpaige1/flashcardhero-api/config"
	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/handlers"
	"github.com/andrewpaige1/flashcardhero-api/middleware"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

func init() {
	// Load .env file if not in production environment
	config.LoadDotEnv()
}

func main() {
	env, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := config.Connect(env)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}

	collections := store.NewGormStore(db, store.WithPublicLimit(env.PublicQueryLimit))
	defer collections.Close()

	authMiddleware, err := middleware.EnsureValidToken(middleware.TokenOptions{
		Secret:   []byte(env.JWTSecret),
		Issuer:   env.AuthIssuer,
		Audience: env.AuthAudience,
	})
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	DBHandler := handlers.NewDBHandler(db, collections, newGenerator(env), env.GenerateRatePerMinute)
	if env.DevLogin {
		log.Printf("Warning: DEV_LOGIN is enabled, anyone can sign in by nickname")
		DBHandler.Issuer = &auth.Issuer{
			Secret:   []byte(env.JWTSecret),
			Issuer:   env.AuthIssuer,
			Audience: env.AuthAudience,
		}
	}

	mux := http.NewServeMux()
	DBHandler.Routes(mux, middleware.SyncUserMiddleware(db))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(authMiddleware(mux))

	server := &http.Server{
		Addr:              "0.0.0.0:" + env.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// newGenerator builds the configured generation backend. Without credentials
// the server still runs; generate and improve answer 503.
func newGenerator(env config.Environment) generation.Generator {
	var (
		completer generation.Completer
		err       error
	)
	switch env.Generator {
	case config.GeneratorOpenAI:
		completer, err = generation.NewOpenAI(env.OpenAIAPIKey, env.OpenAIModel, env.OpenAIBaseURL)
	default:
		completer, err = generation.NewAnthropic(env.AnthropicAPIKey, env.ClaudeModel)
	}
	if err != nil {
		log.Printf("Warning: generation disabled: %v", err)
		return nil
	}
	return generation.New(completer)
}
