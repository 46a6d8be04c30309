package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/response"
)

// writeError maps a service error onto the HTTP envelope. Unknown errors
// are logged with op and reported as a generic 500.
func writeError(c *gin.Context, err error, op string) {
	msg := domain.PublicMessage(err)
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		response.Error(c, http.StatusBadRequest, domain.ErrCodeValidation, msg)
	case domain.ErrCodeNotFound:
		response.NotFound(c, msg)
	case domain.ErrCodeForbidden:
		response.Forbidden(c, msg)
	case domain.ErrCodeUnauthorized:
		response.Unauthorized(c, msg)
	case domain.ErrCodeStoreUnavailable:
		response.ServiceUnavailable(c, msg)
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(op)
		response.InternalError(c, msg)
	}
}
