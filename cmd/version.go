package cmd

import (
	"fmt"
	"runtime"
)

// printVersion displays build information.
func printVersion() {
	fmt.Printf("sage %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
