package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
)

type normalizedInitiateInput struct {
	UserID               int64              `json:"userId"`
	CartItemID           *int64             `json:"cartItemId"`
	UseRegisteredAddress bool               `json:"useRegisteredAddress"`
	Shipping             *normalizedAddress `json:"shipping"`
}

type normalizedAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
}

// FingerprintInitiate hashes the checkout request, excluding the idempotency key.
func FingerprintInitiate(input types.InitiateInput) (string, error) {
	normalized := normalizedInitiateInput{
		UserID:               input.UserID,
		CartItemID:           input.CartItemID,
		UseRegisteredAddress: input.UseRegisteredAddress,
	}
	if input.Shipping != nil && !input.UseRegisteredAddress {
		a := input.Shipping.Normalize()
		normalized.Shipping = &normalizedAddress{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Phone:     a.Phone,
			Address:   a.Address,
			City:      a.City,
			State:     a.State,
			Pincode:   a.Pincode,
		}
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
