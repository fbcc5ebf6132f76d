package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iskanderovv/filemaster/internal/logging"
)

// Decision is the outcome of an authentication check
type Decision struct {
	Allowed bool
	Reason  string
}

// Validator is a caller-supplied authentication check
type Validator func(r *http.Request) (bool, error)

// Config selects the authentication strategy. The first configured
// strategy wins: disabled, custom validator, API key, bearer secret.
type Config struct {
	Enabled      bool
	Custom       Validator
	APIKey       string
	BearerSecret string
}

// Gate authorizes requests before any upload work happens
type Gate struct {
	cfg    Config
	logger *logging.Logger
}

// NewGate creates an authentication gate
func NewGate(cfg Config, logger *logging.Logger) *Gate {
	return &Gate{cfg: cfg, logger: logger}
}

// Check evaluates the configured strategy against the request
func (g *Gate) Check(r *http.Request) Decision {
	if !g.cfg.Enabled {
		return Decision{Allowed: true}
	}

	if g.cfg.Custom != nil {
		return g.checkCustom(r)
	}

	if g.cfg.APIKey != "" {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = bearerToken(r)
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(g.cfg.APIKey)) != 1 {
			return Decision{Allowed: false, Reason: "invalid API key"}
		}
		return Decision{Allowed: true}
	}

	if g.cfg.BearerSecret != "" {
		token := bearerToken(r)
		if token == "" {
			return Decision{Allowed: false, Reason: "no token provided"}
		}
		// Structural check only: three non-empty dot-separated segments in the
		// header.payload.signature shape. The signature is NOT verified against
		// BearerSecret; this reproduces the behavior relying clients already
		// depend on. See DESIGN.md before pointing anything sensitive at it.
		parts := strings.Split(token, ".")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Decision{Allowed: false, Reason: "invalid token format"}
		}
		if _, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err != nil {
			// Admission is purely structural; surface undecodable tokens for
			// operators without changing the decision.
			g.logger.Debug("bearer token does not decode as a JWT", logging.WithField("error", err.Error()))
		}
		return Decision{Allowed: true}
	}

	return Decision{Allowed: true}
}

func (g *Gate) checkCustom(r *http.Request) (d Decision) {
	// A panicking validator counts as a denial, not a crashed request.
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Warn("custom auth validator panicked", logging.WithField("panic", rec))
			d = Decision{Allowed: false, Reason: "authentication failed"}
		}
	}()

	ok, err := g.cfg.Custom(r)
	if err != nil || !ok {
		return Decision{Allowed: false, Reason: "authentication failed"}
	}
	return Decision{Allowed: true}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
