package docs

// @title           Ride Dispatch API
// @version         1.0
// @description     Driver matching, fare quotes, ride lifecycle and wallet ledger. Notifications are pushed over a WebSocket.

// @contact.name   API Support

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
