package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	outputDir string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(outputDir string) *HealthHandler {
	return &HealthHandler{outputDir: outputDir}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// Ready means uploads can be written to the output directory.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := checkWritable(h.outputDir); err != nil {
		log.Warn().Err(err).Str("dir", h.outputDir).Msg("HealthHandler.Readiness: output dir not writable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "output directory not writable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".readyz-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
