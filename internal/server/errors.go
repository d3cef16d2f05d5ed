package server

import (
	"errors"
	"net/http"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"

	"github.com/gin-gonic/gin"
)

var errBusy = errors.New("a batch is already running for this target")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var parseErr *gemini.ParseError
	var refusal *gemini.RefusalError
	switch {
	case errors.Is(err, errBusy):
		return http.StatusConflict
	case errors.Is(err, record.ErrNotFound), errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotSelectable), errors.Is(err, domain.ErrUnknownCharacter), errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gemini.ErrMissingCredential):
		return http.StatusPreconditionRequired
	case errors.As(err, &parseErr), errors.As(err, &refusal), errors.Is(err, generator.ErrAllAttemptsFailed), errors.Is(err, gemini.ErrNoImageData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
