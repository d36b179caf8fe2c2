package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Message responds with a success flag and a human readable message alongside the data.
func Message(c *gin.Context, status int, message string, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// Error sends an error response converting the error to the common structure.
// Internal failures are logged by the access logger through c.Error and never echoed back.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	public := appErrors.Public(appErr)
	noStore(c)
	c.JSON(public.Status, Envelope{Success: false, Message: public.Message, Error: public})
}

// Attachment streams raw bytes as a downloadable file.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	noStore(c)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
