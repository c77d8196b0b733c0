package api

import (
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	DatasetHandler *DatasetHandler
}

func NewRouter(cfg *RouterConfig) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", cfg.DatasetHandler.GetHealth)

	v1 := router.Group("/v1/")
	registerDatasetRoutes(v1, cfg.DatasetHandler)

	return router
}

func registerDatasetRoutes(router *gin.RouterGroup, datasetHandler *DatasetHandler) {
	router.GET("/symbols", datasetHandler.GetSymbols)

	labels := router.Group("/labels")
	{
		labels.GET("/distribution", datasetHandler.GetDistribution)
	}

	dataset := router.Group("/dataset")
	{
		dataset.GET("/preview", datasetHandler.GetPreview)
	}
}
