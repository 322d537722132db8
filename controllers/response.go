package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
	"taskboard/utils"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindForbidden:    fiber.StatusForbidden,
	services.KindConflict:     fiber.StatusConflict,
	services.KindInvalidInput: fiber.StatusBadRequest,
}

// respondError writes a service error. Internal failures are reported to
// Sentry and answered with a generic message.
func respondError(c *fiber.Ctx, logger *logrus.Entry, operation string, err error) error {
	kind := services.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		utils.LogError(operation, err, map[string]interface{}{
			"path":       c.Path(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, services.MessageOf(err), nil)
	}

	logger.WithFields(logrus.Fields{
		"operation": operation,
		"kind":      kind.String(),
	}).Debug(err.Error())
	return utils.ErrorResponse(c, status, services.MessageOf(err), nil)
}
