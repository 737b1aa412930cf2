// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - POST /auth/register, POST /auth/login: account registration and login.
//     Both respond with {"token","expires_at","user"} where the token is a
//     bearer token for the Authorization header.
//   - GET /rooms, GET /rooms/{id}: room catalog for authenticated users.
//   - GET /rooms/{id}/availability?date=YYYY-MM-DD: a room's confirmed
//     bookings for one calendar day.
//   - GET /rooms/availability/all?date=YYYY-MM-DD: the same day view across
//     every active room.
//   - POST /rooms/{id}/check-availability: advisory conflict probe for a
//     proposed {"start","end"} slot. The answer is not a hold; the booking
//     transaction re-checks before committing.
//   - POST /reservations, GET /reservations, GET /reservations/{id},
//     PUT /reservations/{id}, DELETE /reservations/{id}: reservation
//     management exchanging the `reservationDTO` payload defined in
//     reservation_handler.go. Listing returns the caller's own reservations;
//     DELETE cancels rather than erases. Reservations owned by other users
//     respond 404 so their existence is not disclosed.
//   - GET/PUT /users/profile: the caller's own account details; PUT changes
//     name or department only.
//   - GET /users/upcoming-reservations, GET /users/past-reservations: the
//     caller's schedule split around the current instant.
//   - GET /users/statistics: the caller's booking summary.
//   - GET/POST /admin/rooms, PUT/DELETE /admin/rooms/{id}: room management.
//   - GET /admin/reservations: reservations across all users with filters.
//   - GET /admin/users, PUT /admin/users/{id}/role: account administration.
//   - GET /admin/logs, GET /admin/logs/stats, GET /admin/statistics: audit
//     trail and usage reporting. DELETE /admin/logs clears the trail.
//
// Every endpoint outside /auth requires a bearer token; the /admin endpoints
// additionally require the admin role, enforced by the application services.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
