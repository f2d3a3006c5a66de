// Package audit keeps a durable trail of shell sessions and relay changes
// in the audit_logs table.
//
// Trail is the write side used at runtime: it is registered as a
// device.Observer and called by the server when sessions open and close.
// Write failures are logged and never interrupt control. Old entries are
// removed by Trail.Prune, run periodically by the server.
package audit
