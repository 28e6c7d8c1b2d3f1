package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type certificateApi struct {
	deps ServerDeps
}

func registerCertificateAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := certificateApi{deps: deps}

	cg := g.Group("/certificates", authed...)
	cg.GET("", api.mine)
	cg.GET("/:id/download", api.download)
}

func (api *certificateApi) mine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	certs, err := api.deps.Certificates.ListForUser(ctx.Request().Context(), actor.UserID)
	if err != nil {
		return errors.Wrap(err, "listing certificates")
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificateApi) download(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	art, err := api.deps.Certificates.Download(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "downloading certificate")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.Filename))
	return ctx.Blob(http.StatusOK, art.ContentType, art.Content)
}
