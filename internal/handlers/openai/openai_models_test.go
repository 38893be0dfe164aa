package openai

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocigenai-gateway/internal/models"
)

func TestListModels(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list models.ModelList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "list", list.Object)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "command", list.Data[0].ID)
	assert.Equal(t, "cohere", list.Data[0].OwnedBy)
	assert.Equal(t, "gpt-4o", list.Data[1].ID)
	assert.Equal(t, "meta", list.Data[1].OwnedBy)
}

func TestGetModel(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/v1/models/gpt-4o", "")
	require.Equal(t, http.StatusOK, w.Code)
	var m models.ModelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "gpt-4o", m.ID)

	w = doJSON(r, http.MethodGet, "/v1/models/missing", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "model_not_found", code)
}
