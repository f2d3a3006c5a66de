// Package process runs short-lived helper commands and re-executes the
// relayshell binary.
//
// Helper commands (such as the network reconnect command) run in their
// own process group so a timeout kills any children they spawn. Their
// stdout and stderr are captured and logged at debug level.
//
// Example usage:
//
//	err := process.Run(ctx, process.Command{
//	    Name:    "reconnect",
//	    Binary:  "nmcli",
//	    Args:    []string{"networking", "on"},
//	    Timeout: 10 * time.Second,
//	}, logger)
package process
