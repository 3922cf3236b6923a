package ports

import "github.com/gin-gonic/gin"

type StreamHTTPHandler interface {
	Health(c *gin.Context)
	Asset(c *gin.Context)
}

type ControlHTTPHandler interface {
	SetConditionFromPath(c *gin.Context)
	SetConditionFromBody(c *gin.Context)
}
