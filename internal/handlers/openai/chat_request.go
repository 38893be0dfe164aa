package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/constants"
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

// decodeChatRequest reads and decodes the request body. Any failure is an InvalidRequest.
func decodeChatRequest(c *gin.Context) (*models.ChatRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.InvalidRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperrors.InvalidRequest("failed to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.InvalidRequest("request body is required")
	}
	var req models.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.InvalidRequest("invalid JSON body: %v", err)
	}
	return &req, nil
}
