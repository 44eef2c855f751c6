package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/access"
	"github.com/shikshahub/portal/core/content"
	"github.com/shikshahub/portal/core/session"
)

type portalAPI struct {
	sessions *session.Manager
	content  *content.Synchronizer
	creds    core.CredentialStore
}

func registerPortalAPI(app *echo.Echo, deps ServerDeps) {
	api := portalAPI{
		sessions: deps.Sessions,
		content:  deps.Content,
		creds:    deps.Creds,
	}

	// navigable destinations, each gated by its route requirement
	for path := range access.Routes {
		app.GET(path, api.page(path), api.guard(path))
	}

	v1 := app.Group("/v1")
	v1.GET("/session", api.retrieveSession)
	v1.POST("/session/login", api.login)
	v1.DELETE("/session", api.logout)
	v1.GET("/content", api.queryContent)
}

// guard translates the Access Guard's directive for a destination into an
// HTTP response. Redirects are 303 See Other so browsers replace the
// disallowed location instead of looping back into it.
func (api *portalAPI) guard(path string) echo.MiddlewareFunc {
	req := access.Routes[path]
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := api.sessions.Session()
			switch access.Decide(sess, req) {
			case access.Wait:
				ctx.Response().Header().Set("Retry-After", "1")
				return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "loading"})
			case access.RedirectToLogin:
				return ctx.Redirect(http.StatusSeeOther, access.LoginPath)
			case access.RedirectToRoleHome:
				return ctx.Redirect(http.StatusSeeOther, access.RoleHome(sess.Role))
			}
			return next(ctx)
		}
	}
}

func (api *portalAPI) page(path string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{
			"page":    path,
			"session": api.sessions.Session(),
		})
	}
}

// Handlers

func (api *portalAPI) retrieveSession(ctx echo.Context) error {
	sess := api.sessions.Session()
	return ctx.JSON(http.StatusOK, SessionResponse{
		Session:  sess,
		Resolved: sess.Phase == session.PhaseResolved,
	})
}

func (api *portalAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	id, err := api.creds.SignIn(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return core.NewValidationError(errors.New("invalid credentials"))
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Identity: id, Session: api.sessions.Session()})
}

func (api *portalAPI) logout(ctx echo.Context) error {
	if err := api.sessions.Logout(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *portalAPI) queryContent(ctx echo.Context) error {
	var filter ContentFilter
	filter.Bind(ctx)

	items := api.content.Items()
	return ctx.JSON(http.StatusOK, ContentResponse{
		State:      api.content.State().String(),
		Categories: content.CategoryCounts(items),
		Items:      content.Filter(items, filter.Category, filter.Search),
	})
}
