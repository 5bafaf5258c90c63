package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSendErrorSuggestsEndpoints(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/entity/foo", nil)

	SendError(c, http.StatusNotFound, "not found")

	var resp struct {
		Success bool `json:"success"`
		Code    int  `json:"code"`
		Details struct {
			Suggestions []string `json:"suggestions"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, []string{"/api/v1/entities"}, resp.Details.Suggestions)
}

func TestSendAppError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/control/pause", nil)

	SendAppError(c, apperrors.WithDetails(apperrors.ErrUnavailable, "no snapshot yet"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no snapshot yet")
	assert.Contains(t, w.Body.String(), "/api/v1/control/pause")
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendSuccess(c, map[string]int{"queue_size": 3})

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"queue_size": float64(3)}, resp.Data)
}
