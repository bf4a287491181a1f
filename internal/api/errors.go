package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/logging"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError writes err as {"error", "kind"} with the status of its kind.
// Storage and unclassified errors are logged.
func (e *env) respondError(c *gin.Context, funcName string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.LogError(e.logger, "api", funcName, c.FullPath(), c.Params, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": apperr.KindName(err)})
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	body := gin.H{"error": "invalid request body", "kind": apperr.KindName(apperr.ErrValidation)}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		body["fields"] = fields
	} else {
		body["error"] = fmt.Sprintf("invalid request body: %v", err)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// vesselFor loads a vessel within the caller's organization. A vessel of
// another organization is reported as not found.
func (e *env) vesselFor(c *gin.Context, id string) (*models.Vessel, bool) {
	v, err := vessel.Get(e.db, auth.FromContext(c).OrgID, id)
	if err != nil {
		e.respondError(c, "vesselFor", err)
		return nil, false
	}
	return v, true
}

// scoped checks that a child entity's vessel belongs to the caller's
// organization, reporting what as not found otherwise.
func (e *env) scoped(c *gin.Context, vesselID, what, id string) bool {
	_, err := vessel.Get(e.db, auth.FromContext(c).OrgID, vesselID)
	if errors.Is(err, apperr.ErrNotFound) {
		e.respondError(c, "scoped", apperr.NotFound("%s not found: %s", what, id))
		return false
	}
	if err != nil {
		e.respondError(c, "scoped", err)
		return false
	}
	return true
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
