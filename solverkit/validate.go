package solverkit

import "fmt"

func requirePositive(v int, name string) error {
	if v <= 0 {
		return fmt.Errorf("solverkit: %s must be positive, got %d", name, v)
	}
	return nil
}

func requireNonNegative(v float64, name string) error {
	if v < 0 {
		return fmt.Errorf("solverkit: %s must be non-negative, got %g", name, v)
	}
	return nil
}

func requireNonNegativeInt(v int, name string) error {
	if v < 0 {
		return fmt.Errorf("solverkit: %s must be non-negative, got %d", name, v)
	}
	return nil
}
