package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apidrops "github.com/cozyartz/etchNFT/pkg/api/types/drops"
	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	"github.com/cozyartz/etchNFT/pkg/imaging"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

func validDrop(s apidrops.Spec) error {
	switch {
	case s.Slug == "":
		return apierr.BadRequest(`"slug" is required`, nil)
	case s.Name == "":
		return apierr.BadRequest(`"name" is required`, nil)
	case s.Price.IsNegative():
		return apierr.BadRequest(`"price" should not be negative`, nil)
	case s.TotalSupply < 0 || s.MaxPerUser < 0:
		return apierr.BadRequest(`"totalSupply" and "maxPerUser" should not be negative`, nil)
	case s.LaunchAt != nil && s.EndAt != nil && !s.LaunchAt.Time().Before(s.EndAt.Time()):
		return apierr.BadRequest(`"endAt" should be after "launchAt"`, nil)
	}
	return nil
}

// AdminFindDropsHandler lists every drop, live or not.
func AdminFindDropsHandler(drops kdrop.DropInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset, err := page(c)
		if err != nil {
			return err
		}
		found, err := drops.Find(c.Request().Context(), domain.DropFindQuery{Limit: limit, Offset: offset})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apidrops.ComposeSummary))
	}
}

func CreateDropHandler(drops kdrop.DropInterface, auditor *auth.Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apidrops.Spec](c)
		if err != nil {
			return err
		}
		if err := validDrop(spec); err != nil {
			return err
		}

		d, err := drops.Create(c.Request().Context(), spec.Domain(""))
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "create", "drops", d.Id, map[string]any{"slug": d.Slug, "name": d.Name})
		return c.JSON(http.StatusCreated, apidrops.ComposeSummary(d))
	}
}

func UpdateDropHandler(drops kdrop.DropInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apidrops.Spec](c)
		if err != nil {
			return err
		}
		if err := validDrop(spec); err != nil {
			return err
		}

		d, err := drops.Update(c.Request().Context(), spec.Domain(c.Param(param)))
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "update", "drops", d.Id, map[string]any{
			"slug": d.Slug, "active": d.Active, "price": d.Price.StringFixed(2),
		})
		return c.JSON(http.StatusOK, apidrops.ComposeSummary(d))
	}
}

func DeleteDropHandler(drops kdrop.DropInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(param)
		if err := drops.Delete(c.Request().Context(), id); err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "delete", "drops", id, nil)
		return c.NoContent(http.StatusNoContent)
	}
}

// CreateDropItemHandler adds an item to the drop. Its laser file is pending until processed.
func CreateDropItemHandler(drops kdrop.DropInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apidrops.ItemSpec](c)
		if err != nil {
			return err
		}
		if spec.Name == "" || spec.OriginalImageURL == "" {
			return apierr.BadRequest(`"name" and "originalImageUrl" are required`, nil)
		}

		ctx := c.Request().Context()
		dropId := c.Param(param)
		if _, err := drops.Get(ctx, dropId); err != nil {
			return asHTTPError(err)
		}
		item, err := drops.CreateItem(ctx, spec.Domain(dropId))
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "create", "drop_items", item.Id, map[string]any{"dropId": dropId, "name": item.Name})
		return c.JSON(http.StatusCreated, apidrops.ComposeItem(item))
	}
}

// ItemProcessor is satisfied by *imaging.Processor.
type ItemProcessor interface {
	ProcessItem(
		ctx context.Context, drops kdrop.DropInterface, itemId string, templateId string, opts imaging.Options,
	) (domain.DropItem, imaging.Result, error)
}

var _ ItemProcessor = &imaging.Processor{}

// ProcessItemHandler makes the laser file of the drop item with the template.
//
// When the image cannot be processed, the item is marked failed and it answers 422.
func ProcessItemHandler(
	drops kdrop.DropInterface, processor ItemProcessor, auditor *auth.Auditor, param string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apidrops.ProcessRequest](c)
		if err != nil {
			return err
		}
		if req.TemplateId == "" {
			return apierr.BadRequest(`"templateId" is required`, nil)
		}

		itemId := c.Param(param)
		item, result, err := processor.ProcessItem(c.Request().Context(), drops, itemId, req.TemplateId, req.Options)
		if err != nil {
			if item.LaserFileStatus == domain.LaserFileFailed {
				audited(c, auditor, "process", "drop_items", itemId, map[string]any{
					"templateId": req.TemplateId, "status": string(item.LaserFileStatus),
				})
				return apierr.NewErrorMessage(
					http.StatusUnprocessableEntity, "failed to process the image",
					apierr.WithAdvice("check the original image is PNG, JPEG or GIF and reachable"),
					apierr.WithError(err),
				)
			}
			return asHTTPError(err)
		}

		audited(c, auditor, "process", "drop_items", itemId, map[string]any{
			"templateId": req.TemplateId,
			"status":     string(item.LaserFileStatus),
			"quality":    string(result.Metrics.Quality),
		})
		return c.JSON(http.StatusOK, apidrops.ComposeProcess(item, result))
	}
}

// DropProcessor is satisfied by *imaging.Processor.
type DropProcessor interface {
	ProcessDrop(
		ctx context.Context, drops kdrop.DropInterface, dropId string, templateId string, opts imaging.Options,
	) (imaging.Batch, error)
}

var _ DropProcessor = &imaging.Processor{}

// BatchProcessHandler makes laser files of every pending item of the drop with the template.
//
// Items which fail are reported in the results. When nothing is pending, it answers 200 with empty results.
func BatchProcessHandler(
	drops kdrop.DropInterface, processor DropProcessor, auditor *auth.Auditor, param string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apidrops.ProcessRequest](c)
		if err != nil {
			return err
		}
		if req.TemplateId == "" {
			return apierr.BadRequest(`"templateId" is required`, nil)
		}

		dropId := c.Param(param)
		batch, err := processor.ProcessDrop(c.Request().Context(), drops, dropId, req.TemplateId, req.Options)
		if err != nil {
			return asHTTPError(err)
		}

		res := apidrops.ComposeBatch(batch)
		audited(c, auditor, "process", "drops", dropId, map[string]any{
			"templateId": req.TemplateId,
			"total":      res.Summary.Total,
			"successful": res.Summary.Successful,
			"failed":     res.Summary.Failed,
		})
		return c.JSON(http.StatusOK, res)
	}
}

// ListTemplatesHandler lists design templates. Query: material.
func ListTemplatesHandler(drops kdrop.DropInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ts, err := drops.Templates(c.Request().Context(), c.QueryParam("material"))
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(ts, apidrops.ComposeTemplate))
	}
}

func CreateTemplateHandler(drops kdrop.DropInterface, auditor *auth.Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apidrops.Template](c)
		if err != nil {
			return err
		}
		if spec.Name == "" || spec.Material == "" || spec.TemplateSVG == "" {
			return apierr.BadRequest(`"name", "material" and "templateSvg" are required`, nil)
		}
		spec.Id = ""

		t, err := drops.CreateTemplate(c.Request().Context(), spec.Domain())
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "create", "design_templates", t.Id, map[string]any{"name": t.Name, "material": t.Material})
		return c.JSON(http.StatusCreated, apidrops.ComposeTemplate(t))
	}
}
