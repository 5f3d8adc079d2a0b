package validators

import (
	"testing"

	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type quantityInput struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"gte=0,max=100"`
}

func TestStructMapsFieldErrors(t *testing.T) {
	err := Struct(quantityInput{Quantity: 101})
	require.Error(t, err)
	require.True(t, pkgerrors.IsValidation(err))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["quantityInput.ticket_type_id"])
	require.Equal(t, "must be at most 100", details["quantityInput.quantity"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(quantityInput{TicketTypeID: "tt", Quantity: 3}))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "Mozilla", SanitizeString("  Mozilla  ", 0))
	require.Equal(t, "Moz", SanitizeString("Mozilla", 3))
}
