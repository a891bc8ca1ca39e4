package loop

import "fmt"

func recoveredPanicError(p any) error {
	return fmt.Errorf("loop: recovered panic: %v", p)
}
