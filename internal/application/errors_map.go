package application

import (
	"errors"

	"github.com/Almishev/pos-shop/internal/domain"
	apperrors "github.com/Almishev/pos-shop/pkg/errors"
)

// mapDomainError translates domain sentinels into transport-ready errors.
// Errors that are already AppErrors pass through untouched.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.NewNotFound("item not found").WithCause(err)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return apperrors.NewNotFound("transaction not found").WithCause(err)
	case errors.Is(err, domain.ErrItemAlreadyExists):
		return apperrors.NewAlreadyExists("item already exists").WithCause(err)
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidAdjustmentType):
		return apperrors.NewValidation("%s", err.Error()).WithCause(err)
	case errors.Is(err, domain.ErrVersionConflict):
		return apperrors.NewConflictRetryable("concurrent stock update, retry the request").WithCause(err)
	case errors.Is(err, domain.ErrMutationInProgress):
		return apperrors.NewConflict("a request with this idempotency key is still in progress").WithCause(err)
	default:
		return apperrors.NewStorage("storage operation failed").WithCause(err)
	}
}
