// Package command defines the shell's command table and executes commands
// against the device state.
//
// The table is built once from the output list and never changes. Matching
// is exact and case-sensitive; completion is a case-insensitive prefix match.
//
//	registry := command.NewRegistry(device.DefaultOutputs)
//	dispatcher := command.NewDispatcher(registry, state, clk)
//	reply := dispatcher.Dispatch(ctx, "fans on") // "Fans are now ON\n"
package command
