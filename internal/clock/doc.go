// Package clock provides local site time and its periodic correction.
//
// SystemClock reports the host time, corrected by the offset measured at the
// last NTP query, in the site timezone. Manual is a settable clock for tests.
// Task runs a function at a fixed interval when polled, which is how the
// connection loop performs its weekly resync.
package clock
