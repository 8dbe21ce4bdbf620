package factory

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// userIDContextKey mirrors types.ContextUserIDKey; factory sits below types in the import graph.
const userIDContextKey = "user_id"

func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.WithField("module", module)
}

// LoggerWithContext adds the request id and, once auth ran, the caller's user id.
func LoggerWithContext(logger logrus.FieldLogger, ctx echo.Context) logrus.FieldLogger {
	requestID := ctx.Request().Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = ctx.Response().Header().Get(echo.HeaderXRequestID)
	}

	fields := logrus.Fields{"request_id": requestID}
	if userID, ok := ctx.Get(userIDContextKey).(string); ok && userID != "" {
		fields["user_id"] = userID
	}
	return logger.WithFields(fields)
}
