package response

import "github.com/gin-gonic/gin"

type errorBody struct {
	Detail string `json:"detail"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// Error writes the API's error shape and aborts remaining handlers.
func Error(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorBody{Detail: detail})
}
