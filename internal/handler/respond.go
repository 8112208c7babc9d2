package handler

import "github.com/labstack/echo/v4"

// Every endpoint speaks the same envelope: {success, data?, error?}.
// Non-2xx responses always populate error; 2xx responses may still carry
// success=false for logical failures, so clients check both.

func respondOK(c echo.Context, status int, data interface{}) error {
    if data == nil {
        return c.JSON(status, echo.Map{"success": true})
    }
    return c.JSON(status, echo.Map{"success": true, "data": data})
}

func respondErr(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "error": msg})
}
