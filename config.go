package auth

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvConfig is an environment backed Config implementation. A zero value is
// not usable; build one through LoadConfigFromEnv or fill the fields directly
// in tests.
type EnvConfig struct {
	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenExpiration int
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
	Debug           bool
}

var _ Config = (*EnvConfig)(nil)

// LoadConfigFromEnv reads configuration from environment variables, loading a
// local .env file first when present.
func LoadConfigFromEnv() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		SigningKey:      os.Getenv("AUTH_SIGNING_KEY"),
		SigningMethod:   getEnv("AUTH_SIGNING_METHOD", "HS256"),
		ContextKey:      getEnv("AUTH_CONTEXT_KEY", "user"),
		TokenExpiration: getEnvAsInt("AUTH_TOKEN_EXPIRATION_HOURS", DefaultTokenTTLHours),
		TokenLookup:     getEnv("AUTH_TOKEN_LOOKUP", "header:Authorization,cookie:token"),
		AuthScheme:      getEnv("AUTH_SCHEME", "Bearer"),
		Issuer:          getEnv("AUTH_ISSUER", ""),
		Audience:        getEnvAsSlice("AUTH_AUDIENCE"),
		Debug:           getEnvAsBool("AUTH_DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fails fast on configuration the auth stack cannot run with.
func (c *EnvConfig) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return ErrMissingSigningSecret
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c *EnvConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *EnvConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenTTLHours
	}
	return c.TokenExpiration
}

func (c *EnvConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:token"
	}
	return c.TokenLookup
}

func (c *EnvConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }

func (c *EnvConfig) GetDebug() bool { return c.Debug }

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
