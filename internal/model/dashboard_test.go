package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestDashboardVariant(t *testing.T) {
    cases := []struct {
        role    string
        variant string
    }{
        {RoleOwner, VariantAdmin},
        {RoleAdmin, VariantAdmin},
        {RoleSubscriber, VariantSubscriber},
    }
    for _, tc := range cases {
        got, err := DashboardVariant(tc.role)
        require.NoError(t, err, tc.role)
        assert.Equal(t, tc.variant, got, tc.role)
    }
}

func TestDashboardVariantUnknownRole(t *testing.T) {
    for _, role := range []string{"", "owner", "superuser", "ADMIN "} {
        _, err := DashboardVariant(role)
        assert.ErrorIs(t, err, ErrUnknownRole, "role %q", role)
    }
}
