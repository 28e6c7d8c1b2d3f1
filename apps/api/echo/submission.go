package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/submission"
)

type submissionApi struct {
	deps ServerDeps
}

func registerSubmissionAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{deps: deps}

	ag := g.Group("", authed...)
	ag.POST("/assignments/:id/submit", api.submit)

	sg := ag.Group("/submissions")
	sg.GET("", api.mine)
	sg.GET("/pending", api.pending)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/review", api.review)
}

func (api *submissionApi) submit(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data submission.Answer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Answer")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.Tracker.Submit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) mine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	subs, err := api.deps.Tracker.Mine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) pending(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	subs, err := api.deps.Tracker.Pending(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing pending submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	sub, err := api.deps.Tracker.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) review(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data submission.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.Tracker.Review(ctx.Request().Context(), actor, ctx.Param("id"), data.Decision)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
