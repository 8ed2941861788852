// Command shadowd runs the IoT edge platform: an embedded mTLS MQTT
// broker, a device-shadow processor, a bbolt time-series/document store,
// and a peripheral HTTP admin surface. Grounded on orbas1-Synnergy's
// cmd/ tree: one cobra root command, one file per verb.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at link time via -ldflags "-X main.version=...".
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "shadowd",
	Short:         "mTLS MQTT broker and device-shadow service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shadowd:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec.md §6's taxonomy: 0 success (cobra
// returning nil never reaches here), 1 configuration or runtime failure,
// 2 a usage error marked as *usageError (create-device's argument-count
// check). Cobra's own errors for an unknown verb or a failed Args check
// are not marked and map to 1.
func exitCodeFor(err error) int {
	if _, ok := err.(*usageError); ok {
		return 2
	}
	return 1
}

// usageError marks a bad invocation (missing/extra arguments) as distinct
// from a configuration or runtime failure.
type usageError struct {
	cause error
}

func (e *usageError) Error() string { return e.cause.Error() }
func (e *usageError) Unwrap() error { return e.cause }

func newUsageError(format string, args ...interface{}) error {
	return &usageError{cause: fmt.Errorf(format, args...)}
}
