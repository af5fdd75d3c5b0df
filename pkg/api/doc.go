// Package api exposes the garage back office as a REST surface. Routes carry
// identity extraction, per-route authorization, and audit recording; handlers
// hold only decode, validate, persist, and respond logic.
package api
