package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	customermemory "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/memory"
	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

func TestSaveProfile_CreatesThenUpdates(t *testing.T) {
	svc := NewService(customermemory.NewRepository())
	ctx := context.Background()

	created, err := svc.SaveProfile(ctx, 42, domain.Profile{FirstName: " Asha ", Email: "asha@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Asha", created.FirstName)
	require.ErrorIs(t, created.CheckAddress(), domain.ErrIncompleteAddress)

	updated, err := svc.SaveProfile(ctx, 42, domain.Profile{
		FirstName: "Asha", Phone: "9876543210", Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	})
	require.NoError(t, err)
	require.NoError(t, updated.CheckAddress())

	got, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "411001", got.Pincode)
}

func TestSaveProfile_InvalidInput(t *testing.T) {
	svc := NewService(customermemory.NewRepository())
	ctx := context.Background()

	_, err := svc.SaveProfile(ctx, 42, domain.Profile{Email: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SaveProfile(ctx, 42, domain.Profile{Pincode: "41100"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SaveProfile(ctx, 0, domain.Profile{FirstName: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(customermemory.NewRepository())
	_, err := svc.Get(context.Background(), 7)
	require.ErrorIs(t, err, ports.ErrNotFound)
}
