package restapi

import (
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/datasource"
	"github.com/sharedcode/graphkv/restapi/docs"
)

// BasePath is the route group the REST methods are mounted under.
const BasePath = "/api/v1"

// NewRouter returns a gin engine serving ds at BasePath+ModelPath, bearer token protected,
// and the swagger docs at /swagger/index.html. maxPaths bounds the paths a request may address.
func NewRouter(ds *datasource.DataSource, maxPaths int) (*gin.Engine, error) {
	router := gin.Default()
	docs.SwaggerInfo.BasePath = BasePath
	docs.SwaggerInfo.Version = graphkv.Version

	registry := NewRegistry()
	if err := NewModelHandler(ds, maxPaths).Register(registry); err != nil {
		return nil, err
	}
	if err := registry.Mount(router.Group(BasePath), VerifyHeaderToken); err != nil {
		return nil, err
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	return router, nil
}
