package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an enhanced error response with additional context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendError sends an error response with enhanced context
func SendError(c *gin.Context, statusCode int, message string) {
	errorResponse := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
	}

	// Add helpful suggestions for common errors
	if statusCode == http.StatusNotFound {
		suggestions := generateNotFoundSuggestions(c.Request.URL.Path)
		if len(suggestions) > 0 {
			errorResponse.Details = map[string]interface{}{
				"suggestions": suggestions,
				"message":     "The requested endpoint does not exist. Check the suggestions below for similar endpoints.",
			}
		}
	} else if statusCode == http.StatusMethodNotAllowed {
		errorResponse.Details = map[string]interface{}{
			"message": "The HTTP method is not supported for this endpoint. Please check the API documentation for supported methods.",
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendAppError sends an AppError with its status code and details.
func SendAppError(c *gin.Context, err *apperrors.AppError) {
	errorResponse := ErrorResponse{
		Success:   false,
		Error:     err.Message,
		Code:      err.Code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
	}
	if err.Details != "" {
		errorResponse.Details = map[string]interface{}{"message": err.Details}
	}
	c.JSON(err.Code, errorResponse)
}

// generateNotFoundSuggestions provides helpful endpoint suggestions for 404 errors
func generateNotFoundSuggestions(path string) []string {
	commonEndpoints := []string{
		"/health",
		"/api/v1/snapshot",
		"/api/v1/metrics",
		"/api/v1/entities",
		"/api/v1/refresh",
		"/api/v1/control/:command",
		"/metrics",
		"/ws",
	}

	pathLower := strings.ToLower(path)
	var keywords []string
	switch {
	case strings.Contains(pathLower, "entit"):
		keywords = []string{"entities"}
	case strings.Contains(pathLower, "control"), strings.Contains(pathLower, "command"),
		strings.Contains(pathLower, "pause"), strings.Contains(pathLower, "resume"):
		keywords = []string{"control"}
	case strings.Contains(pathLower, "snapshot"), strings.Contains(pathLower, "refresh"):
		keywords = []string{"snapshot", "refresh"}
	case strings.Contains(pathLower, "metric"), strings.Contains(pathLower, "stat"):
		keywords = []string{"metrics", "health"}
	case strings.Contains(pathLower, "health"), strings.Contains(pathLower, "status"):
		keywords = []string{"health"}
	}

	seen := make(map[string]bool)
	var unique []string
	for _, endpoint := range commonEndpoints {
		for _, keyword := range keywords {
			if strings.Contains(endpoint, keyword) && !seen[endpoint] && len(unique) < 5 {
				seen[endpoint] = true
				unique = append(unique, endpoint)
			}
		}
	}

	return unique
}
