// Package audit provides the append-only audit trail for state-changing
// operations. Events are written synchronously after persistence and fan out
// to database and file sinks; a sink failure is reported to the caller for
// logging but never blocks the API response. The archiver uploads daily
// NDJSON batches to S3.
package audit
