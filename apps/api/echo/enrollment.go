package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentApi struct {
	deps ServerDeps
}

func registerEnrollmentAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollmentApi{deps: deps}

	ag := g.Group("", authed...)
	ag.POST("/programs/:id/enroll", api.request)

	eg := ag.Group("/enrollments")
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id/approval", api.setApproval)
	eg.POST("/:id/toggle-approval", api.toggleApproval)
}

func (api *enrollmentApi) request(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := api.deps.Ledger.Request(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "requesting enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter enrollment.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	enrs, err := api.deps.Ledger.Filter(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "filtering enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := api.deps.Ledger.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) setApproval(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data ApprovalRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApprovalRequest")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	enr, err := api.deps.Ledger.SetApproval(ctx.Request().Context(), actor, ctx.Param("id"), *data.IsApproved)
	if err != nil {
		return errors.Wrap(err, "setting approval")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) toggleApproval(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := api.deps.Ledger.ToggleApproval(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling approval")
	}
	return ctx.JSON(http.StatusOK, enr)
}
