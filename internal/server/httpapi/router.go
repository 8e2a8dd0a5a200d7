// Package httpapi exposes the application services over HTTP. It owns
// routing, multipart parsing, DTO validation and the mapping from the shared
// error taxonomy to status codes; everything below it works with plain Go
// values.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/services"
)

const healthCheckTimeout = 2 * time.Second

// Deps collects everything the router needs.
type Deps struct {
	Projects  *services.ProjectService
	Nodes     *services.NodeService
	Users     *services.UserService
	SecretKey []byte
	Logger    logging.Logger
	DBPinger  func(ctx context.Context) error
}

// NewRouter assembles the public HTTP surface.
func NewRouter(deps Deps) http.Handler {

	validate := validator.New()

	projectHandlers := NewProjectHandlers(deps.Projects, deps.Nodes, validate, deps.Logger)
	userHandlers := NewUserHandlers(deps.Users, validate, deps.Logger)

	authenticator := Authenticator(deps.SecretKey)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httprate.LimitAll(100, 1*time.Second))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if deps.DBPinger != nil {
			if err := deps.DBPinger(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", userHandlers.Register)
		r.Post("/login", userHandlers.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Patch("/password", userHandlers.ChangePassword)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", userHandlers.GetProfile)
		r.Put("/", userHandlers.UpdateProfile)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", projectHandlers.Create)

		r.Get("/user/{userId}", projectHandlers.FindForUser)
		r.Get("/team/{teamId}", projectHandlers.FindForTeam)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projectHandlers.Get)
			r.Patch("/", projectHandlers.Update)
			r.Delete("/", projectHandlers.Delete)

			r.Post("/files", projectHandlers.UploadFiles)
			r.Get("/files", projectHandlers.GetFiles)
			r.Get("/files/list", projectHandlers.ListFiles)
			r.Get("/files/raw/*", projectHandlers.FetchFile)

			r.Post("/members", projectHandlers.AddMember)
			r.Patch("/members/{userId}", projectHandlers.UpdateMemberRole)
			r.Delete("/members/{userId}", projectHandlers.RemoveMember)

			r.Patch("/access", projectHandlers.TouchLastAccessed)

			r.Get("/nodes/{nodeName}", projectHandlers.GetNode)
			r.Post("/nodes/{nodeName}/ask", projectHandlers.AskNode)
		})
	})

	return r
}
