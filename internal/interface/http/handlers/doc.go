// Package handlers contains HTTP building blocks used by the API server.
//
// # Health Checks
//
// Checks are registered by name and executed in parallel. Required checks
// decide readiness; optional ones only mark the service as degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("store", handlers.NewPingCheck(pgConn))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//	checker.AddOptionalCheck("redis_breaker", handlers.NewBreakerCheck(guarded.Breaker()))
//
// # Middleware
//
// All middleware is plain gin.HandlerFunc:
//
//	router.Use(
//	    handlers.RequestID(log),
//	    handlers.Recovery(log),
//	    handlers.AccessLog(log),
//	    handlers.CORS([]string{"*"}),
//	    handlers.NewRateLimiter(20, 40).Middleware(),
//	    handlers.Timeout(10*time.Second),
//	)
//
// # Responses
//
// Respond and Fail write the common envelope
// {success, data, error{code,message}, meta{request_id,timestamp}}.
package handlers
