package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tutorchat/internal/api/http/converter"
	"github.com/immxrtalbeast/tutorchat/internal/service"
)

type PresenceController struct {
	presence service.PresenceInteractor
}

func NewPresenceController(presence service.PresenceInteractor) *PresenceController {
	return &PresenceController{presence: presence}
}

func (c *PresenceController) ListUsers(ctx *gin.Context) {
	users := c.presence.ConnectedUsers()
	ctx.JSON(http.StatusOK, gin.H{"users": converter.UsersToApi(users)})
}

func (c *PresenceController) Counts(ctx *gin.Context) {
	counts := c.presence.Counts()

	raw, ok := ctx.GetQuery("department_id")
	if !ok {
		ctx.JSON(http.StatusOK, converter.CountsToApi(counts))
		return
	}

	departmentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid department id"})
		return
	}

	students, tutors := c.presence.DepartmentCounts(departmentID)
	ctx.JSON(http.StatusOK, converter.DepartmentCountsToApi(counts, departmentID, students, tutors))
}

func (c *PresenceController) Kick(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("userID"), 10, 64)
	if err != nil || userID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := c.presence.Kick(userID); err != nil {
		if errors.Is(err, service.ErrUserNotConnected) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user is not connected"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.Status(http.StatusNoContent)
}
