package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/quillhub/backend/internal/auth"
	"github.com/quillhub/backend/internal/comments"
	apierrors "github.com/quillhub/backend/internal/errors"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/posts"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/repository"
	"github.com/quillhub/backend/internal/search"
	"github.com/quillhub/backend/internal/util"
)

// apiErrorFor maps domain sentinels to API errors. Anything unmapped is a
// store failure and yields nil.
func apiErrorFor(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, posts.ErrNotFound):
		return apierrors.NotFound("post")
	case errors.Is(err, comments.ErrCommentNotFound):
		return apierrors.NotFound("comment")
	case errors.Is(err, reactions.ErrTargetNotFound):
		return apierrors.NotFound("reaction target")
	case errors.Is(err, reactions.ErrNoReaction):
		return apierrors.NotFound("reaction")
	case errors.Is(err, notifications.ErrNotFound):
		return apierrors.NotFound("notification")
	case errors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound("user")

	case errors.Is(err, posts.ErrForbidden),
		errors.Is(err, comments.ErrForbidden),
		errors.Is(err, notifications.ErrForbidden):
		return apierrors.Forbidden(err.Error())

	case errors.Is(err, posts.ErrContentMissing):
		return apierrors.ValidationError("content", err.Error())
	case errors.Is(err, posts.ErrTitleTooLong):
		return apierrors.ValidationError("title", err.Error())
	case errors.Is(err, comments.ErrEmptyText), errors.Is(err, comments.ErrTextTooLong):
		return apierrors.ValidationError("text", err.Error())
	case errors.Is(err, search.ErrEmptyQuery):
		return apierrors.ValidationError("q", err.Error())
	case errors.Is(err, reactions.ErrInvalidReaction):
		return apierrors.ValidationError("reaction", err.Error())

	case errors.Is(err, auth.ErrUserExists):
		return apierrors.AlreadyExists("user")
	case errors.Is(err, auth.ErrUsernameExists):
		return apierrors.AlreadyExists("username")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierrors.Unauthorized("invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		return apierrors.Unauthorized("invalid token")

	case errors.Is(err, search.ErrDisabled):
		return apierrors.ServiceUnavailable("search index")
	}
	return nil
}

// respondError answers with the mapped API error, or a generic 500 whose
// detail is only logged
func respondError(c *gin.Context, err error) {
	if apiErr := apiErrorFor(err); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	util.RespondStoreError(c, err)
}

// respondBindError turns a binding failure into a field-level 400
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		util.RespondValidationError(c, strings.ToLower(fe.Field()), validationMessage(fe))
		return
	}
	util.RespondBadRequest(c, "invalid request body")
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}
