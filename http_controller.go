package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// RegisterAuthRoutes mounts the login and profile routes on app
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login+"/:role", controller.LoginPost).
		Name("sign-in.post")

	app.Get(controller.Routes.Profile,
		NewMiddleware(MiddlewareConfig{
			Resolver:        controller.Auther,
			RequireRoleHint: true,
		}),
		controller.ProfileGet,
	).Name("profile.get")

	app.Get(controller.Routes.Auxiliares+"/:id",
		NewMiddleware(MiddlewareConfig{
			Resolver:     controller.Auther,
			AllowedRoles: []Role{RoleDirectivo},
		}),
		controller.AccountGet(RoleAuxiliar),
	).Name("auxiliares.get")

	return controller
}

type AuthControllerRoutes struct {
	Login   string
	Profile string
	// Auxiliares lists assistant accounts, directors only
	Auxiliares string
}

type AuthController struct {
	Logger Logger
	Routes *AuthControllerRoutes
	Auther *RoleAuthenticator
	Login  *LoginService
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithAuthenticator sets the authenticator guarding the profile route
func WithAuthenticator(a *RoleAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

// WithLoginService sets the service answering login requests
func WithLoginService(s *LoginService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Login = s
		return c
	}
}

// WithRoutes overrides the default route paths
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes.Login != "" {
			c.Routes.Login = routes.Login
		}
		if routes.Profile != "" {
			c.Routes.Profile = routes.Profile
		}
		if routes.Auxiliares != "" {
			c.Routes.Auxiliares = routes.Auxiliares
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:      "/login",
			Profile:    "/mis-datos",
			Auxiliares: "/auxiliares",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RoleAuthenticator in auth controller...")
	}

	if c.Login == nil {
		c.Login = NewLoginService(c.Auther, nil).WithLogger(c.Logger)
	}

	return c
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    LoginDataBody `json:"data"`
}

// LoginDataBody is the data section of a successful login
type LoginDataBody struct {
	FirstName string `json:"Nombres"`
	LastName  string `json:"Apellidos"`
	Role      Role   `json:"Rol"`
	Token     string `json:"token"`
	PhotoID   string `json:"Google_Drive_Foto_ID"`
	Gender    string `json:"Genero"`
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	role, ok := RoleFromSlug(c.Params("role"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Rol no soportado",
		})
	}

	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Debug("login body parse failed", "role", role, "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "El cuerpo de la solicitud no es válido",
		})
	}

	result, err := a.Login.Login(c.UserContext(), role, *payload)
	if err != nil {
		var loginErr *LoginError
		if !errors.As(err, &loginErr) {
			a.Logger.Error("login failed", "role", role, "error", err)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Error en el servidor, por favor intente más tarde",
			})
		}
		body := fiber.Map{
			"success": false,
			"message": loginErr.Message,
		}
		if len(loginErr.Details) > 0 {
			body["details"] = loginErr.Details
		}
		return c.Status(loginErr.Status).JSON(body)
	}

	return c.JSON(LoginResponse{
		Success: true,
		Message: "Inicio de sesión exitoso",
		Data: LoginDataBody{
			FirstName: result.Account.FirstName,
			LastName:  result.Account.LastName,
			Role:      role,
			Token:     result.Token,
			PhotoID:   result.Account.PhotoID,
			Gender:    result.Account.Gender,
		},
	})
}

func (a *AuthController) ProfileGet(c *fiber.Ctx) error {
	principal, ok := GetPrincipal(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "No autenticado",
		})
	}

	desc, ok := a.Auther.Table().Lookup(principal.Role)
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Rol no soportado",
		})
	}

	return a.writeAccount(c, desc, principal.ID)
}

// AccountGet serves the account of role named by the :id param. The route
// middleware decides which callers may read it.
func (a *AuthController) AccountGet(role Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := GetPrincipal(c); !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "No autenticado",
			})
		}

		desc, ok := a.Auther.Table().Lookup(role)
		if !ok {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Rol no soportado",
			})
		}

		return a.writeAccount(c, desc, utils.CopyString(c.Params("id")))
	}
}

func (a *AuthController) writeAccount(c *fiber.Ctx, desc RoleDescriptor, id string) error {
	account, err := desc.Store.FindByID(c.UserContext(), id)
	if err != nil {
		a.Logger.Error("account lookup failed", "role", desc.Role, "subject", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Error en el servidor, por favor intente más tarde",
		})
	}

	if account == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Usuario no encontrado",
		})
	}

	account.Role = desc.Role

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Datos obtenidos correctamente",
		"data":    account,
	})
}
