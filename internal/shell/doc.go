// Package shell runs one interactive line-editing session over a connection.
//
// A Session reads one byte at a time, waiting at most the poll interval for
// each, so the idle deadline is re-checked on every tick. It keeps an input
// buffer with a cursor, command history, and a tab-completion cycle, and
// hands each completed line to a Dispatcher.
//
// Bytes understood by the editor:
//
//	\n           submit the line
//	\t           complete; repeated tabs cycle through the matches
//	0x7F, 0x08   erase the character before the cursor
//	ESC [ A/B    previous/next history entry
//	ESC [ C/D    cursor right/left
//	0x03, 0x04   end the session
//	IAC ...      telnet negotiation, skipped
//
// Other printable ASCII is inserted at the cursor and echoed. Remaining
// control bytes, including \r, are ignored.
package shell
