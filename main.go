// Command poverlay injects the overlay module into a running process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/r0lh/poverlay/injector"
	"github.com/r0lh/poverlay/logging"
	"github.com/r0lh/poverlay/winsys"
)

var (
	timeoutFlag time.Duration
	verboseFlag bool
)

// describe maps an injection failure to the line shown to the operator.
func describe(err error) string {
	switch {
	case errors.Is(err, injector.ErrProcessNotFound):
		return "Process not found."
	case errors.Is(err, injector.ErrModuleNotFound):
		return "Module file not found."
	case errors.Is(err, injector.ErrAccessDenied):
		return "Can't open remote process. Maybe running without elevated integrity?"
	case errors.Is(err, injector.ErrRemoteAllocationFailed), errors.Is(err, injector.ErrRemoteWriteFailed):
		return "Can't prepare module path in remote process."
	case errors.Is(err, injector.ErrLoaderUnresolved), errors.Is(err, injector.ErrRemoteThreadFailed):
		return "Can't start loader thread in remote process."
	case errors.Is(err, injector.ErrWaitAbandoned):
		return "Gave up waiting for the loader thread."
	case errors.Is(err, injector.ErrModuleLoadFailed):
		return "Remote process refused to load the module."
	}
	return "Injection failed."
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "poverlay <processName> <modulePath>",
		Short:         "Inject the overlay module into a running process",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewCLI(cmd.OutOrStdout(), verboseFlag)

			ctx := cmd.Context()
			if timeoutFlag > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
				defer cancel()
			}

			inj := injector.New(winsys.Kernel32{}, injector.WithLoaderLogger(log))
			pid, err := inj.InjectByName(ctx, args[0], args[1])
			if err != nil {
				log.WithError(err).Debug("injection failed")
				return errors.New(describe(err))
			}
			log.WithFields(logrus.Fields{"process": args[0], "pid": pid}).Info("Injection complete!")
			return nil
		},
	}
	root.Flags().DurationVar(&timeoutFlag, "timeout", 0, "give up waiting for the loader after this long")
	root.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	root.Flags().MarkHidden("timeout")
	root.Flags().MarkHidden("verbose")
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		stop()
		os.Exit(1)
	}
}
