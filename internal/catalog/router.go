package catalog

import (
	"github.com/gin-gonic/gin"
)

// SetupCatalogRoutes registers the public resource browsing routes
func SetupCatalogRoutes(rg *gin.RouterGroup, controller *Controller) {
	resources := rg.Group("/resources")
	{
		resources.GET("", controller.ListResources)
		resources.GET("/:id", controller.GetResource)
		resources.GET("/:id/slots", controller.GetSlots)
	}
}
