package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/aidesk/internal/training"
)

func (s *Server) handleTraining(c echo.Context) error {
	if s.deps.Trainer == nil {
		return failNotFound(c, "Training is not enabled")
	}

	var req training.Request
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if errs := req.Validate(); errs != nil {
		return failValidation(c, errs)
	}

	result, err := s.deps.Trainer.Train(c.Request().Context(), req)
	switch {
	case errors.Is(err, training.ErrTrainingInProgress):
		return fail(c, http.StatusConflict, "A training job is already running", nil)
	case err != nil:
		s.logger.Warn().Err(err).Str("name", req.Name).Msg("training failed")
		return internalError(c, "Training failed. Please try again.")
	}

	return successWithStatus(c, http.StatusCreated, result)
}
