package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// DefaultContextKey is the Locals key the principal is stored under
const DefaultContextKey = "principal"

// DefaultRoleHintQuery is the query parameter carrying the role hint
const DefaultRoleHintQuery = "Rol"

// Resolver resolves a request into a terminal outcome
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) AuthOutcome
}

// ValidationListener is invoked after a principal has been resolved but
// before the request proceeds.
type ValidationListener func(c *fiber.Ctx, principal *Principal) error

type MiddlewareConfig struct {
	Filter         func(*fiber.Ctx) bool
	Resolver       Resolver
	SuccessHandler fiber.Handler
	ErrorHandler   func(c *fiber.Ctx, decision Decision) error
	ContextKey     string
	RoleHintQuery  string
	// RequireRoleHint rejects requests without the role hint with 400
	RequireRoleHint bool
	// AllowedRoles restricts the roles accepted by the route
	AllowedRoles []Role

	ValidationListeners []ValidationListener
}

// NewMiddleware returns a fiber handler that authenticates the request through the
// configured Resolver and attaches the principal on success.
func NewMiddleware(config ...MiddlewareConfig) fiber.Handler {
	cfg := getDefaultMiddlewareConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		// query values point into a buffer fasthttp reuses after the handler
		hint := utils.CopyString(c.Query(cfg.RoleHintQuery))
		if cfg.RequireRoleHint && hint == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success":   false,
				"message":   "Parámetros obligatorios faltantes: " + cfg.RoleHintQuery,
				"errorType": "MISSING_PARAMETERS",
			})
		}

		outcome := cfg.Resolver.Resolve(c.UserContext(), ResolveRequest{
			Authorization: c.Get(fiber.HeaderAuthorization),
			RoleHint:      hint,
			AllowedRoles:  cfg.AllowedRoles,
		})

		decision := Finalize(outcome)
		if !decision.Continue() {
			return cfg.ErrorHandler(c, decision)
		}

		for _, listener := range cfg.ValidationListeners {
			if listener == nil {
				continue
			}
			if err := listener(c, decision.Principal); err != nil {
				return err
			}
		}

		c.Locals(cfg.ContextKey, decision.Principal)
		c.SetUserContext(WithPrincipal(c.UserContext(), decision.Principal))

		return cfg.SuccessHandler(c)
	}
}

func getDefaultMiddlewareConfig(config ...MiddlewareConfig) (cfg MiddlewareConfig) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Resolver == nil {
		panic("AUTH: middleware configuration: Resolver is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, d Decision) error {
			return c.Status(d.Status).JSON(d.Body)
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.RoleHintQuery == "" {
		cfg.RoleHintQuery = DefaultRoleHintQuery
	}

	return cfg
}

// GetPrincipal returns the principal attached by the middleware
func GetPrincipal(c *fiber.Ctx, key ...string) (*Principal, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	p, ok := c.Locals(k).(*Principal)
	return p, ok && p != nil
}
