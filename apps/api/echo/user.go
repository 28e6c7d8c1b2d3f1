package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	deps ServerDeps
	auth *authenticator
}

func registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps, auth *authenticator) {
	api := userApi{deps: deps, auth: auth}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.GET("/me", api.profile)

	g.GET("/stats", api.stats, chain(authed, roleMiddleware(user.RoleAdmin))...)
	g.GET("/curators", api.curators, chain(authed, roleMiddleware(user.RoleAdmin))...)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// profile returns the user with their certificates and completion progress.
func (api *userApi) profile(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	certs, err := api.deps.Certificates.ListForUser(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing certificates")
	}
	progress, err := api.deps.Evaluator.Progress(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	percent, err := api.deps.Evaluator.ProgressPercent(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing progress percent")
	}

	return ctx.JSON(http.StatusOK, ProfileResponse{
		User:            usr,
		Role:            usr.Role(),
		Certificates:    certs,
		Progress:        progress,
		ProgressPercent: percent,
	})
}

func (api *userApi) stats(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	var (
		resp StatsResponse
		err  error
	)
	if resp.Participants, err = api.deps.UserSvc.CountWithRole(rctx, user.RoleParticipant); err != nil {
		return errors.Wrap(err, "counting participants")
	}
	if resp.Curators, err = api.deps.UserSvc.CountWithRole(rctx, user.RoleCurator); err != nil {
		return errors.Wrap(err, "counting curators")
	}
	if resp.Programs, err = api.deps.CatalogSvc.CountPrograms(rctx); err != nil {
		return errors.Wrap(err, "counting programs")
	}
	if resp.Certificates, err = api.deps.Certificates.Count(rctx); err != nil {
		return errors.Wrap(err, "counting certificates")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) curators(ctx echo.Context) error {
	users, err := api.deps.UserSvc.ListWithRole(ctx.Request().Context(), user.RoleCurator)
	if err != nil {
		return errors.Wrap(err, "listing curators")
	}
	return ctx.JSON(http.StatusOK, users)
}
