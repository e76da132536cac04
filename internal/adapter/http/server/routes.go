package server

import (
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ride-dispatch/docs" // swagger doc registration
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *Handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("GET /health", routes.Health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)

	setupDispatchRoutes(mux, routes, m)
	setupRideRoutes(mux, routes, m)
	setupDriverRoutes(mux, routes, m)
	setupWalletRoutes(mux, routes, m)

	mux.HandleFunc("GET /ws/notifications", routes.Notifications.Connect) // WebSocket notifications of the caller
}

func setupDispatchRoutes(mux *http.ServeMux, routes *Handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides/candidates", m.RequireRoles(routes.Dispatch.Candidates, types.RiderRole, types.AdminRole)) // Priced candidates for a trip
	mux.Handle("GET /drivers/nearby", m.RequireRoles(routes.Dispatch.Nearby))                                          // Nearby drivers, no fares
}

func setupRideRoutes(mux *http.ServeMux, routes *Handlers, m *middleware.Middleware) {
	mux.Handle("POST /ride-requests", m.RequireRoles(routes.Requests.Create, types.RiderRole))              // Offer a ride to a driver
	mux.Handle("POST /ride-requests/{id}/respond", m.RequireRoles(routes.Requests.Respond, types.DriverRole)) // Driver accepts or rejects
	mux.Handle("POST /ride-requests/{id}/cancel", m.RequireRoles(routes.Requests.Cancel, types.RiderRole))    // Rider withdraws

	mux.Handle("POST /rides/{id}/pickup", m.RequireRoles(routes.Rides.Pickup, types.DriverRole))     // ACCEPTED -> IN_PROGRESS
	mux.Handle("POST /rides/{id}/complete", m.RequireRoles(routes.Rides.Complete, types.DriverRole)) // IN_PROGRESS -> COMPLETED + settlement
	mux.Handle("POST /rides/{id}/rating", m.RequireRoles(routes.Rides.Rate, types.RiderRole))        // Rate a completed ride
}

func setupDriverRoutes(mux *http.ServeMux, routes *Handlers, m *middleware.Middleware) {
	mux.Handle("POST /drivers/{id}/online", m.RequireSelf("id", routes.Drivers.GoOnline, types.DriverRole))         // Driver goes online
	mux.Handle("POST /drivers/{id}/offline", m.RequireSelf("id", routes.Drivers.GoOffline, types.DriverRole))       // Driver goes offline
	mux.Handle("POST /drivers/{id}/location", m.RequireSelf("id", routes.Drivers.UpdateLocation, types.DriverRole)) // Update driver location
}

func setupWalletRoutes(mux *http.ServeMux, routes *Handlers, m *middleware.Middleware) {
	mux.Handle("POST /wallets/{ownerId}/topup", m.RequireSelf("ownerId", routes.Wallets.TopUp, types.RiderRole, types.DriverRole))
	mux.Handle("GET /wallets/{ownerId}/statement", m.RequireSelf("ownerId", routes.Wallets.Statement, types.RiderRole, types.DriverRole))
	mux.Handle("POST /payments/{id}/refund", m.RequireRoles(routes.Wallets.Refund, types.AdminRole))
	mux.Handle("POST /admin/wallets/{id}/reconcile", m.RequireRoles(routes.Wallets.Reconcile, types.AdminRole))

	mux.HandleFunc("POST /webhooks/stripe", routes.Webhook.Stripe) // signed by Stripe, no bearer token
}

// setupSwaggerRoutes serves Swagger UI for the generated docs
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
