package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"crazypanel/internal/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var reported *reportedError
	if errors.As(err, &reported) {
		return reported.code
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	return services.ExitCode(err)
}

// reportedError carries a failure whose details were already printed.
type reportedError struct {
	code int
	msg  string
}

func (e *reportedError) Error() string { return e.msg }
