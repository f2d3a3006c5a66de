package device

import "fmt"

// MemoryGPIO keeps output levels in process memory.
// It backs the "memory" driver and tests.
type MemoryGPIO struct {
	levels map[string]bool
}

// NewMemoryGPIO creates a MemoryGPIO with every output off.
func NewMemoryGPIO(outputs []Output) *MemoryGPIO {
	levels := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		levels[o.Name] = false
	}
	return &MemoryGPIO{levels: levels}
}

// Set implements GPIO.
func (m *MemoryGPIO) Set(name string, on bool) error {
	if _, ok := m.levels[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	m.levels[name] = on
	return nil
}

// Get implements GPIO.
func (m *MemoryGPIO) Get(name string) (bool, error) {
	on, ok := m.levels[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	return on, nil
}
