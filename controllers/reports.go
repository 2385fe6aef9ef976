package controllers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Adnan2208/EcoTech/middleware"
	"github.com/Adnan2208/EcoTech/models"
	"github.com/Adnan2208/EcoTech/services"
	"github.com/Adnan2208/EcoTech/uploads"
)

type ReportController struct {
	svc   *services.ReportService
	store *uploads.Store
}

func NewReportController(svc *services.ReportService, store *uploads.Store) *ReportController {
	return &ReportController{svc: svc, store: store}
}

// Create handles POST /api/reports (multipart: fields plus up to 5 images).
func (rc *ReportController) Create(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "please provide location coordinates")
	}
	lng, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "please provide location coordinates")
	}

	images, err := rc.collectImages(c, "images")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	report, err := rc.svc.Create(ctx, services.CreateReportInput{
		UserID:      user.ID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Address:     c.FormValue("address"),
		Category:    models.Category(c.FormValue("category")),
		Severity:    models.Severity(c.FormValue("severity")),
		Latitude:    lat,
		Longitude:   lng,
		Images:      images,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusCreated, report)
}

// List handles GET /api/reports with equality and radius filters.
func (rc *ReportController) List(c *fiber.Ctx) error {
	f := services.ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Severity: c.Query("severity"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 10),
	}

	if latStr, lngStr, radStr := c.Query("latitude"), c.Query("longitude"), c.Query("radius"); latStr != "" && lngStr != "" && radStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid latitude")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid longitude")
		}
		radius, err := strconv.Atoi(radStr)
		if err != nil || radius < 0 {
			return fail(c, fiber.StatusBadRequest, "invalid radius")
		}
		f.Latitude, f.Longitude, f.RadiusMeters = &lat, &lng, &radius
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := rc.svc.List(ctx, f)
	if err != nil {
		return serviceError(c, err)
	}
	return pageJSON(c, page)
}

// Get handles GET /api/reports/:id.
func (rc *ReportController) Get(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	report, err := rc.svc.Get(ctx, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, report)
}

// Update handles PUT /api/reports/:id (authority only; multipart fields
// plus up to 5 resolution images).
func (rc *ReportController) Update(c *fiber.Ctx) error {
	images, err := rc.collectImages(c, "resolutionImages")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	report, err := rc.svc.UpdateStatus(ctx, c.Params("id"), services.UpdateStatusInput{
		Status:           models.Status(c.FormValue("status")),
		ResolutionNotes:  c.FormValue("resolutionNotes"),
		ResolutionImages: images,
		ResolvedBy:       user.ID,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, report)
}

// Delete handles DELETE /api/reports/:id. Citizens may delete only their
// own reports; authorities may delete any.
func (rc *ReportController) Delete(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := rc.svc.Delete(ctx, c.Params("id"), middleware.CurrentUser(c)); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{},
		"message": "report deleted successfully",
	})
}

// MyReports handles GET /api/reports/user/my-reports.
func (rc *ReportController) MyReports(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	page, err := rc.svc.ListMine(ctx, user.ID, intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		return serviceError(c, err)
	}
	return pageJSON(c, page)
}

// collectImages processes every file under the given multipart field.
// More than 5 files rejects the whole request rather than dropping the
// extras silently.
func (rc *ReportController) collectImages(c *fiber.Ctx, field string) ([]models.Image, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return []models.Image{}, nil
	}
	files := form.File[field]
	if len(files) > uploads.MaxFiles {
		return nil, fmt.Errorf("cannot upload more than %d images", uploads.MaxFiles)
	}

	images := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := rc.store.Process(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func pageJSON(c *fiber.Ctx, page *models.Page) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"count":       page.Count,
		"total":       page.Total,
		"totalPages":  page.TotalPages,
		"currentPage": page.CurrentPage,
		"data":        page.Data,
	})
}
