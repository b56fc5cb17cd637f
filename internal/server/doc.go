// Package server provides HTTP routing, middleware and the sync trigger endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
//	GET  /health                     liveness and dispatcher queue depth
//	GET  /metrics                    Prometheus exposition
//	POST /api/sync                   start a batch over every user with a source URL
//	POST /api/users/{username}/sync  queue a sync for one user with the stored source URL
//
// Sync endpoints answer 202 Accepted as soon as work is queued; results are only visible in the
// per-user job logs and the users' last sync time.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
