// Package process supervises one child process.
//
// The supervisor binary uses it to run a bridge daemon with its stdout
// attached to a control-channel reader.
//
// Features:
//   - Start/stop with graceful shutdown of the whole process group
//   - Automatic restart on failure with exponential backoff
//   - Exit codes that mark a failure as permanent
//   - Stdout handed to a caller-supplied reader, stderr forwarded or logged
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:               "gridosc",
//	    Binary:             "/usr/bin/gridosc",
//	    Args:               []string{"--device", "Launchpad"},
//	    RestartOnFailure:   true,
//	    MaxRestartAttempts: 10,
//	    Stdout:             readControlChannel,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
