// Package httpapi is the application server in front of the chat service.
//
// HTTP API
//
//	POST /api/chat {"messages": [...], "confidential": bool}
//	    Run one assistant turn and return {"role", "content"}.
//
//	GET /healthz
//	    Liveness probe.
//
// Browsers are identified by an http-only, SameSite=Strict session cookie
// issued on first contact. With the cookie backend, pending key records
// travel in a second sealed cookie bound to the same session.
package httpapi
