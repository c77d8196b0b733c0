package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type DatasetHandler struct {
	datasetService *DatasetService
}

func NewDatasetHandler(service *DatasetService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: service,
	}
}

func (h *DatasetHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *DatasetHandler) GetSymbols(c *gin.Context) {
	symbols, err := h.datasetService.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (h *DatasetHandler) GetDistribution(c *gin.Context) {
	refresh := c.Query("refresh") == "true"

	distribution, err := h.datasetService.Distribution(c.Request.Context(), refresh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, distribution)
}

func (h *DatasetHandler) GetPreview(c *gin.Context) {
	refresh := c.Query("refresh") == "true"

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	samples, err := h.datasetService.Preview(c.Request.Context(), limit, refresh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(samples), "samples": samples})
}
