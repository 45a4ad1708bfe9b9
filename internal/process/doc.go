// Package process supervises a child command and forwards its output.
//
// The supervisor reads stdout and stderr line by line and hands each line
// to a callback, which logship uses to publish the child's output as log
// records. A failed child is restarted after a delay, up to a limit.
// Cancelling the context stops the child's whole process group, first with
// SIGTERM and then SIGKILL.
//
// Example usage:
//
//	sup := process.New(process.Config{
//	    Binary:           "/usr/local/bin/worker",
//	    RestartOnFailure: true,
//	    OnLine: func(stream process.Stream, line string) {
//	        fmt.Println(stream, line)
//	    },
//	})
//	if err := sup.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package process
