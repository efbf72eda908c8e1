package main

// Exit codes: 0 compliant, 1 non-compliant, 2 operational error. The
// compliant/non-compliant distinction is signaled by os.Exit calls in eval.go
// once a verdict exists; anything that reaches Execute's error return is an
// operational failure (bad contract, unreadable policy bundle, bad flags).
const (
	exitCompliant    = 0
	exitNonCompliant = 1
	exitOperational  = 2
)

func exitCodeFor(err error) int {
	if err == nil {
		return exitCompliant
	}
	return exitOperational
}
