package response

import "github.com/gin-gonic/gin"

// Error writes a JSON error body. Handlers return success payloads directly,
// so the only shared shape is the error envelope.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"error": message})
}
