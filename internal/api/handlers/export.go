package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/export"
)

// ExportHandler serves master data and menu export/import as YAML.
type ExportHandler struct {
	exporter *export.Exporter
	logger   zerolog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exporter *export.Exporter, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
		logger:   logger.With().Str("component", "export_handler").Logger(),
	}
}

// RegisterRoutes registers export routes on the given router group. The
// group is expected to carry the admin middleware.
func (h *ExportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/export", h.Export)
	r.POST("/export", h.Import)
}

// Export streams the master data and menu tree as a YAML document.
// GET /api/v1/export
func (h *ExportHandler) Export(c *gin.Context) {
	c.Header("Content-Type", "application/yaml")
	c.Header("Content-Disposition", `attachment; filename="cockpit-export.yaml"`)

	if err := h.exporter.Export(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
}

// Import reads a YAML document from the request body and creates the
// master data and menu entries it contains. Existing entries are left
// untouched.
// POST /api/v1/export
func (h *ExportHandler) Import(c *gin.Context) {
	if err := h.exporter.Import(c.Request.Context(), c.Request.Body); err != nil {
		h.logger.Error().Err(err).Msg("import failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info().Msg("master data import completed")
	c.JSON(http.StatusOK, gin.H{"message": "import completed"})
}
