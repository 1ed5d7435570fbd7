package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Generators.
const (
	GeneratorAnthropic = "anthropic"
	GeneratorOpenAI    = "openai"
)

// Environment is the server configuration.
type Environment struct {
	Port           string
	DBDriver       string
	DBURL          string
	SQLitePath     string
	AllowedOrigins []string

	JWTSecret    string
	AuthIssuer   string
	AuthAudience string
	// DevLogin routes the credential-free login endpoint.
	DevLogin bool

	Generator       string
	AnthropicAPIKey string
	ClaudeModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	PublicQueryLimit      int
	GenerateRatePerMinute int
}

// Token claim defaults, shared with tokens issued by the dev login.
const (
	DefaultIssuer   = "flashcardhero"
	DefaultAudience = "flashcardhero-api"
)

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// LoadDotEnv reads .env outside of production. A missing file is only logged.
func LoadDotEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") != "" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, environment variables might not be loaded: %v", err)
	}
}

// Load reads the server configuration from the environment.
func Load() (Environment, error) {
	env := Environment{
		Port:            getenv("PORT", "8080"),
		DBURL:           os.Getenv("DB_URL"),
		SQLitePath:      getenv("SQLITE_PATH", "flashcardhero.db"),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		JWTSecret:       os.Getenv("JWT_SECRET_KEY"),
		AuthIssuer:      getenv("AUTH_ISSUER", DefaultIssuer),
		AuthAudience:    getenv("AUTH_AUDIENCE", DefaultAudience),
		Generator:       strings.ToLower(getenv("GENERATOR", GeneratorAnthropic)),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:     os.Getenv("CLAUDE_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
	}
	if len(env.AllowedOrigins) == 0 {
		env.AllowedOrigins = defaultOrigins
	}

	env.DBDriver = strings.ToLower(os.Getenv("DB_DRIVER"))
	if env.DBDriver == "" {
		env.DBDriver = DriverSQLite
		if env.DBURL != "" {
			env.DBDriver = DriverPostgres
		}
	}

	var err error
	if env.PublicQueryLimit, err = getInt("PUBLIC_QUERY_LIMIT", 50); err != nil {
		return Environment{}, err
	}
	if env.GenerateRatePerMinute, err = getInt("GENERATE_RATE_PER_MINUTE", 20); err != nil {
		return Environment{}, err
	}
	if v := strings.TrimSpace(os.Getenv("DEV_LOGIN")); v != "" {
		if env.DevLogin, err = strconv.ParseBool(v); err != nil {
			return Environment{}, fmt.Errorf("DEV_LOGIN: %w", err)
		}
	}
	return env, env.validate()
}

func (e Environment) validate() error {
	switch e.DBDriver {
	case DriverPostgres:
		if e.DBURL == "" {
			return fmt.Errorf("DB_URL is required for the postgres driver")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", e.DBDriver)
	}
	switch e.Generator {
	case GeneratorAnthropic, GeneratorOpenAI:
	default:
		return fmt.Errorf("unknown GENERATOR %q", e.Generator)
	}
	if e.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY not set")
	}
	if e.PublicQueryLimit <= 0 {
		return fmt.Errorf("PUBLIC_QUERY_LIMIT must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
