package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
)

// ErrInvalidInput signals the request violated a profile invariant.
var ErrInvalidInput = errors.New("invalid customer input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidID) ||
		errors.Is(err, domain.ErrInvalidEmail) ||
		errors.Is(err, domain.ErrInvalidPincode) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
