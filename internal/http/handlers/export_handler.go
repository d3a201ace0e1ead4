package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	"cellarbook/internal/export"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
)

type ExportHandler struct {
	Export *services.ExportService
}

// GET /export/:kind
func (h *ExportHandler) CSV(c *fiber.Ctx) error {
	kind := c.Params("kind")
	if !export.ValidKind(kind) {
		return fail(c, "export.csv", domain.ErrNotFound)
	}
	var buf bytes.Buffer
	if err := h.Export.CSV(&buf, currentUser(c).ID, kind); err != nil {
		return fail(c, "export.csv", err)
	}
	name := fmt.Sprintf("%s-%s.csv", kind, time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	applog.Audit(c, "export.csv", map[string]any{"kind": kind, "bytes": buf.Len()})
	return c.Send(buf.Bytes())
}
