package medstoreserver

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	cartapp "github.com/Apurer/medstore-checkout/internal/domains/cart/application"
	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	customerapp "github.com/Apurer/medstore-checkout/internal/domains/customers/application"
	customerports "github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
	inventoryapp "github.com/Apurer/medstore-checkout/internal/domains/inventory/application"
	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
	ordersapp "github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	orderports "github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	paymentports "github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
	apierrors "github.com/Apurer/medstore-checkout/internal/shared/errors"
)

// responder maps every bounded context's errors onto RFC 7807 problems.
var responder = apierrors.NewChainedResponder("",
	mapStockErrors,
	mapValidationErrors,
	mapNotFoundErrors,
	mapConflictErrors,
	mapGatewayErrors,
)

func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	responder.BadRequest(c, err.Error())
}

// respondBindingError reports struct tag failures per JSON field and anything else as a bad request.
func respondBindingError(c *gin.Context, err error) {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		respondBadRequest(c, err)
		return
	}
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		name := fe.Field()
		fields[strings.ToLower(name[:1])+name[1:]] = fe.Tag()
	}
	responder.ValidationFailed(c, fields)
}

func mapStockErrors(err error) (apierrors.ProblemDetail, bool) {
	var shortage *inventorydomain.InsufficientStockError
	if errors.As(err, &shortage) {
		return apierrors.NewOutOfStockProblem(shortage.ProductNames()), true
	}
	if errors.Is(err, inventorydomain.ErrInsufficientStock) {
		return apierrors.ErrOutOfStock.WithDetail(err.Error()), true
	}
	if errors.Is(err, cartapp.ErrExceedsStock) {
		return apierrors.ErrOutOfStock.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapValidationErrors(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrEmptyCart), errors.Is(err, cartdomain.ErrEmptyCart):
		return apierrors.ErrEmptyCart.WithDetail("there is nothing to check out"), true
	case errors.Is(err, ordersapp.ErrAddressRequired):
		return apierrors.ErrValidation.WithDetail(err.Error()).WithExtension("field", "shipping"), true
	case errors.Is(err, ordersapp.ErrInvalidInput),
		errors.Is(err, cartapp.ErrInvalidInput),
		errors.Is(err, inventoryapp.ErrInvalidInput),
		errors.Is(err, customerapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapNotFoundErrors(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, orderports.ErrNotFound):
		return apierrors.NewNotFoundProblem("order", "order"), true
	case errors.Is(err, inventoryports.ErrNotFound):
		return apierrors.NewNotFoundProblem("product", "product"), true
	case errors.Is(err, cartports.ErrNotFound):
		return apierrors.NewNotFoundProblem("cartItem", "cart item"), true
	case errors.Is(err, customerports.ErrNotFound):
		return apierrors.NewNotFoundProblem("customer", "profile"), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapConflictErrors(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, orderports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail("Idempotency-Key was already used for a different checkout"), true
	case errors.Is(err, ordersapp.ErrCallbackInFlight):
		return apierrors.ErrInProgress.WithDetail("this payment is already being verified"), true
	case errors.Is(err, orderports.ErrDuplicatePayment):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapGatewayErrors(err error) (apierrors.ProblemDetail, bool) {
	if errors.Is(err, paymentports.ErrGatewayUnavailable) {
		return apierrors.ErrBadGateway.WithDetail("the payment provider did not respond, try again"), true
	}
	return apierrors.ProblemDetail{}, false
}
