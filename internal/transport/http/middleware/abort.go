package middleware

import (
	"github.com/gin-gonic/gin"

	resp "arzaquna-api/internal/transport/http/response"
)

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(resp.HTTPStatus(code), resp.Error(code, msg))
}
