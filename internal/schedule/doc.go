// Package schedule switches a relay output at fixed times of day.
//
// A Mark fires only when Run is called during its exact minute. Run is
// driven by the connection loop, once per accept cycle, so a minute in which
// no cycle happens (for example because a shell session is open) is missed.
package schedule
