package model

import "errors"

// Dashboard variants returned by DashboardVariant.
const (
    VariantAdmin      = "admin"
    VariantSubscriber = "subscriber"
)

// ErrUnknownRole indicates a role value outside the defined set reached the
// variant mapping.  Roles are assigned server-side at account creation, so
// hitting this is a programming or data-corruption error, not user input.
var ErrUnknownRole = errors.New("unknown role")

// DashboardVariant maps a role to the dashboard variant it may see.  The
// mapping is pure and must be re-derived server-side on every privileged
// request; client-supplied hints are never trusted.
func DashboardVariant(role string) (string, error) {
    switch role {
    case RoleOwner, RoleAdmin:
        return VariantAdmin, nil
    case RoleSubscriber:
        return VariantSubscriber, nil
    default:
        return "", ErrUnknownRole
    }
}
