package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/logging"
)

// AbortWithGatewayError writes the OpenAI error envelope for err and aborts the request.
// A rate limit carries its Retry-After header.
func AbortWithGatewayError(c *gin.Context, err error) {
	ge := apperrors.Translate(err)
	if ge == nil {
		ge = apperrors.Internal(nil)
	}
	c.Set(logging.ContextKeyGatewayErrorKind, ge.Kind.String())
	if v := ge.RetryAfterHeader(); v != "" {
		c.Header("Retry-After", v)
	}
	payload, marshalErr := ge.ToJSON()
	if marshalErr != nil {
		c.JSON(safeStatus(ge.HTTPStatus()), gin.H{
			"error": gin.H{
				"message": ge.Message,
				"type":    ge.Type(),
				"code":    ge.ErrorCode(),
			},
		})
		c.Abort()
		return
	}
	c.Data(safeStatus(ge.HTTPStatus()), "application/json", payload)
	c.Abort()
}

// AbortWithError aborts with a plain OpenAI envelope for failures raised outside the gateway
// core, such as authentication and local rate limiting.
func AbortWithError(c *gin.Context, status int, typ, code, message string) {
	if typ == "" {
		typ = "server_error"
	}
	if code == "" {
		code = typ
	}
	c.AbortWithStatusJSON(safeStatus(status), gin.H{
		"error": gin.H{
			"message": message,
			"type":    typ,
			"param":   nil,
			"code":    code,
		},
	})
}

func safeStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}
