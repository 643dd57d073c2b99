package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ftahirops/drivelog/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		if errors.Is(err, cmd.ErrUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
