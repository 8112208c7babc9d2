package handler

import (
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/mailfold/mailfold/internal/model"
)

// Dashboard resolves which dashboard variant the authenticated identity
// may see.  The mapping runs server-side against the freshly resolved
// role on every request; any variant hint the client sends is ignored.
// An unrecognized role means corrupted data or a bug, never user error,
// and surfaces as a 500.
func Dashboard(c echo.Context) error {
    role, _ := c.Get("role").(string)
    variant, err := model.DashboardVariant(role)
    if err != nil {
        log.Printf("dashboard: %v (role=%q)", err, role)
        return respondErr(c, http.StatusInternalServerError, "internal error")
    }
    email, _ := c.Get("email").(string)
    return respondOK(c, http.StatusOK, echo.Map{"variant": variant, "email": email})
}
