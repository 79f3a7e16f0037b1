// Package api serves a vtable.DB over JSON/HTTP.
//
// Routes:
//
//	POST   /v1/tables                           → create table
//	GET    /v1/tables?ownerId=                  → list tables, newest first
//	GET    /v1/tables/{id}                      → assembled table
//	PATCH  /v1/tables/{id}                      → update table
//	DELETE /v1/tables/{id}                      → delete table and its contents
//	POST   /v1/tables/{id}/columns              → create column
//	PATCH  /v1/columns/{id}                     → update column
//	DELETE /v1/columns/{id}                     → delete column
//	POST   /v1/tables/{id}/rows                 → create row
//	DELETE /v1/rows/{id}                        → delete row
//	PUT    /v1/rows/{rowId}/cells/{columnId}    → set cell value
//	POST   /v1/messages                         → send chat message
//	GET    /v1/messages                         → list chat messages
//	GET    /healthz                             → liveness
//
// Errors are returned as {"error": {"kind": "...", "message": "..."}}.
package api
