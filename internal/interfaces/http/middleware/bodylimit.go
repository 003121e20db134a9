package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmalink/settlement/internal/interfaces/http/dto"
)

// BodyLimit caps the request body size. Settlement submissions are small
// JSON documents, so anything over the cap is rejected before binding.
// Bodies without a declared length are cut off by a MaxBytesReader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodePayloadTooLarge, "Request body exceeds the configured limit"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
