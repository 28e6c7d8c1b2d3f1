package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/catalog"
)

type catalogApi struct {
	deps ServerDeps
}

func registerCatalogAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := catalogApi{deps: deps}

	ag := g.Group("", authed...)
	ag.POST("/sections", api.createSection)
	ag.PUT("/sections/:id", api.updateSection)
	ag.DELETE("/sections/:id", api.destroySection)
	ag.POST("/modules", api.createModule)

	ag.POST("/programs", api.createProgram)
	ag.GET("/programs/:id", api.retrieveProgram)
	ag.PUT("/programs/:id", api.updateProgram)
	ag.DELETE("/programs/:id", api.destroyProgram)
	ag.POST("/programs/:id/favorite", api.toggleFavorite)
	ag.GET("/favorites", api.favorites)

	ag.POST("/assignments", api.createAssignment)
	ag.GET("/assignments/:id", api.retrieveAssignment)
	ag.PUT("/assignments/:id", api.updateAssignment)
	ag.DELETE("/assignments/:id", api.destroyAssignment)

	ag.POST("/materials", api.createMaterial)
	ag.GET("/materials/viewed", api.viewedMaterials)
	ag.GET("/materials/:id", api.retrieveMaterial)
	ag.PUT("/materials/:id", api.updateMaterial)
	ag.DELETE("/materials/:id", api.destroyMaterial)
	ag.POST("/materials/:id/viewed", api.markMaterialViewed)
}

// Sections & Modules

func (api *catalogApi) createSection(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sec, err := api.deps.CatalogSvc.CreateSection(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *catalogApi) updateSection(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sec, err := api.deps.CatalogSvc.UpdateSection(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *catalogApi) destroySection(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CatalogSvc.DeleteSection(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) createModule(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	mod, err := api.deps.CatalogSvc.CreateModule(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

// Programs

func (api *catalogApi) createProgram(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.ProgramInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgramInput")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	prog, err := api.deps.CatalogSvc.CreateProgram(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *catalogApi) retrieveProgram(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	prog, err := api.deps.CatalogSvc.GetProgram(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting program")
	}
	favs, err := api.deps.CatalogSvc.Favorites(rctx, actor)
	if err != nil {
		return errors.Wrap(err, "listing favorites")
	}

	resp := ProgramResponse{Program: prog}
	for _, id := range favs {
		if id == prog.ID {
			resp.IsFavorite = true
			break
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *catalogApi) updateProgram(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.ProgramInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgramInput")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	prog, err := api.deps.CatalogSvc.UpdateProgram(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *catalogApi) destroyProgram(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CatalogSvc.DeleteProgram(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) toggleFavorite(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	fav, err := api.deps.CatalogSvc.ToggleFavorite(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling favorite")
	}
	return ctx.JSON(http.StatusOK, FavoriteResponse{IsFavorite: fav})
}

func (api *catalogApi) favorites(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	ids, err := api.deps.CatalogSvc.Favorites(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing favorites")
	}
	return ctx.JSON(http.StatusOK, IDsResponse{IDs: ids})
}

// Assignments

func (api *catalogApi) createAssignment(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.AssignmentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentInput")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	asg, err := api.deps.CatalogSvc.CreateAssignment(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *catalogApi) retrieveAssignment(ctx echo.Context) error {
	asg, err := api.deps.CatalogSvc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *catalogApi) updateAssignment(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.AssignmentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentInput")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	asg, err := api.deps.CatalogSvc.UpdateAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *catalogApi) destroyAssignment(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CatalogSvc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Materials

func (api *catalogApi) createMaterial(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	mat, err := api.deps.CatalogSvc.CreateMaterial(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *catalogApi) retrieveMaterial(ctx echo.Context) error {
	mat, err := api.deps.CatalogSvc.GetMaterial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting material")
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *catalogApi) updateMaterial(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	mat, err := api.deps.CatalogSvc.UpdateMaterial(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating material")
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *catalogApi) destroyMaterial(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CatalogSvc.DeleteMaterial(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) markMaterialViewed(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	mp, err := api.deps.ProgressSvc.MarkViewed(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking material viewed")
	}
	return ctx.JSON(http.StatusOK, mp)
}

func (api *catalogApi) viewedMaterials(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	ids, err := api.deps.ProgressSvc.Viewed(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing viewed materials")
	}
	return ctx.JSON(http.StatusOK, IDsResponse{IDs: ids})
}

