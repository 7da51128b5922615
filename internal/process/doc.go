// Package process runs short-lived external commands for the bridge.
//
// Each call to Invoker.Run spawns exactly one OS process, captures its
// stdout and stderr as separate text and waits for it to exit or for the
// timeout to expire. A timed-out process is killed together with its whole
// process group.
//
// A non-zero exit status is reported in Result.ExitCode and is not an error:
// wrapped utilities such as uhubctl may still print useful status before
// exiting non-zero, so callers inspect the output either way.
//
// Example usage:
//
//	inv := process.NewInvoker(10 * time.Second)
//	inv.SetLogger(log)
//
//	res, err := inv.Run(ctx, "uhubctl")
//	if errors.Is(err, process.ErrTimeout) {
//	    // the process was killed
//	}
//	fmt.Println(res.ExitCode, res.Output)
package process
