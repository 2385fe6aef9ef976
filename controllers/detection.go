package controllers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/Adnan2208/EcoTech/services"
	"github.com/Adnan2208/EcoTech/uploads"
)

type DetectionController struct {
	svc *services.DetectionService
}

func NewDetectionController(svc *services.DetectionService) *DetectionController {
	return &DetectionController{svc: svc}
}

// Analyze handles POST /api/waste-detection/analyze: ad-hoc detection on
// one uploaded image, without touching any report.
func (dc *DetectionController) Analyze(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File["images"]) == 0 {
		return fail(c, fiber.StatusBadRequest, "please upload an image to analyze")
	}

	fh := form.File["images"][0]
	if fh.Size > uploads.MaxFileSize {
		return fail(c, fiber.StatusBadRequest, "image exceeds the 5MB limit")
	}
	if !uploads.AllowedType(fh.Header.Get("Content-Type")) {
		return fail(c, fiber.StatusBadRequest, "only JPEG, PNG, and WebP images are allowed")
	}

	src, err := fh.Open()
	if err != nil {
		return serviceError(c, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return serviceError(c, err)
	}

	result, err := dc.svc.AnalyzeImage(c.Context(), data)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, result)
}

// AnalyzeReport handles POST /api/waste-detection/report/:id (authority
// only): runs detection over the report's stored images and persists the
// annotations.
func (dc *DetectionController) AnalyzeReport(c *fiber.Ctx) error {
	report, batch, err := dc.svc.AnalyzeReport(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"report":           report,
		"detectionResults": batch,
	})
}

// Results handles GET /api/waste-detection/report/:id.
func (dc *DetectionController) Results(c *fiber.Ctx) error {
	results, err := dc.svc.Results(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, results)
}

// Stats handles GET /api/waste-detection/stats (authority only).
func (dc *DetectionController) Stats(c *fiber.Ctx) error {
	stats, err := dc.svc.Stats(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, stats)
}
