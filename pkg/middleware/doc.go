// Package middleware provides observability middleware for the HTTP
// servers: Prometheus request metrics and OpenTelemetry tracing. Both
// return standard func(http.Handler) http.Handler wrappers so they
// mount directly on a chi router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(
//	    middleware.WithNamespace("staticgo"),
//	))
//	r.Use(middleware.OpenTelemetry())
//	r.Handle("/metrics", promhttp.Handler())
package middleware
