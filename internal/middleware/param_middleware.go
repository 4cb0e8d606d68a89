package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam разбирает числовой параметр маршрута и кладет его в контекст как uint.
// Нечисловой или нулевой id означает несуществующий ресурс, поэтому ответ 404.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found.", "error_type": "not_found"})
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
