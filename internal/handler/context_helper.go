package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/middleware"
	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// pageQuery reads page and limit query parameters; unparsable values fall back to zero so the
// service applies its defaults.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("limit"))
	return page, size
}
