package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/content"
	"github.com/shikshahub/portal/core/session"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

type LoginResponse struct {
	Identity core.Identity   `json:"identity"`
	Session  session.Session `json:"session"`
}

type SessionResponse struct {
	Session  session.Session `json:"session"`
	Resolved bool            `json:"resolved"`
}

type ContentFilter struct {
	Category string `query:"category"`
	Search   string `query:"search"`
}

func (cf *ContentFilter) Bind(ctx echo.Context) {
	cf.Category = ctx.QueryParam("category")
	cf.Search = ctx.QueryParam("search")
	if cf.Category == "" {
		cf.Category = content.CategoryAll
	}
}

type ContentResponse struct {
	State      string                  `json:"state"`
	Categories []content.CategoryCount `json:"categories"`
	Items      []content.ContentItem   `json:"items"`
}
