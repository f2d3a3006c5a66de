// Package server runs the relayshell accept loop.
//
// The loop cycles through three states:
//
//	Idle -> WaitingForPeer -> SessionActive -> Idle
//
// On every Idle entry it checks network reachability (reconnecting when
// needed), runs due periodic tasks such as the weekly clock resync, and
// evaluates the schedule. It then waits a bounded time for a peer. A
// timeout or transient accept error simply returns it to Idle. An
// accepted connection is served to completion by a single shell.Session
// before the next accept, so at most one session is ever active.
//
// A session ending with the reboot command makes Serve return
// ErrRebootRequested; the caller restarts the process.
package server
