// Package router registers the HTTP routes and attaches the
// middleware chain for each group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/handler"
	"github.com/quanghuy/fieldbook/internal/middleware"
	"github.com/quanghuy/fieldbook/internal/model"
)

// Handlers collects every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Wallet  *handler.WalletHandler
	Booking *handler.BookingHandler
	Field   *handler.FieldHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// Middleware carries the optional cross-cutting layers. Nil entries
// are skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register wires all endpoints onto e. Public routes cover health,
// the field catalogue, availability and the gateway webhook; the
// authenticated group splits into user and admin sections.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	if mw.RateLimit != nil {
		e.Use(mw.RateLimit)
	}

	// Auth endpoints work without a session.
	authGroup := e.Group("/v1/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Public catalogue, optionally served from the redis cache.
	public := e.Group("/v1/fields")
	if mw.Cache != nil {
		public.Use(mw.Cache)
	}
	public.GET("", h.Field.List)
	public.GET("/:id", h.Field.Get)
	public.GET("/availability/check", h.Booking.CheckAvailability)

	// The gateway calls this without credentials.
	e.POST("/v1/payments/webhook", h.Payment.Webhook)

	// Everything below needs a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleUser))

	auth.GET("/me", h.Auth.Profile)
	auth.PUT("/me", h.Auth.UpdateProfile)
	auth.PUT("/me/password", h.Auth.ChangePassword)

	auth.GET("/wallet/balance", h.Wallet.Balance)
	auth.GET("/wallet/transactions", h.Wallet.History)
	auth.POST("/wallet/topup", h.Wallet.CreateTopup)
	auth.GET("/wallet/topups", h.Wallet.MyTopups)

	auth.POST("/bookings", h.Booking.Create)
	auth.GET("/bookings", h.Booking.ListMine)
	auth.GET("/bookings/:id", h.Booking.Get)
	auth.PUT("/bookings/:id/cancel", h.Booking.Cancel)

	auth.POST("/payments/create-qr", h.Payment.CreateQR)
	auth.GET("/payments/my-payments", h.Payment.MyPayments)
	auth.POST("/payments/bookings/:booking_id/cancel", h.Payment.CancelBooking)

	// Admin-only section.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.GET("/bookings", h.Admin.ListBookings)
	admin.PUT("/bookings/:id/status", h.Admin.UpdateBookingStatus)
	admin.GET("/topups", h.Admin.ListTopups)
	admin.PUT("/topups/:id", h.Admin.DecideTopup)
	admin.GET("/payments", h.Admin.ListPayments)
	admin.PUT("/payments/:id/confirm", h.Payment.Confirm)
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/wallets/:user_id/adjust", h.Admin.AdjustWallet)
	admin.GET("/statistics", h.Admin.Statistics)

	admin.POST("/fields", h.Field.Create)
	admin.PUT("/fields/:id", h.Field.Update)
	admin.DELETE("/fields/:id", h.Field.Delete)
}
