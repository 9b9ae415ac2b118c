package main

import (
	"io"
	"testing"

	"github.com/pkg/errors"

	"github.com/r0lh/poverlay/injector"
)

func TestDescribe(t *testing.T) {
	cases := map[error]string{
		injector.ErrProcessNotFound:                          "Process not found.",
		errors.Wrap(injector.ErrAccessDenied, "pid 4"):       "Can't open remote process. Maybe running without elevated integrity?",
		errors.Wrap(injector.ErrRemoteWriteFailed, "pid 4"):  "Can't prepare module path in remote process.",
		errors.Wrap(injector.ErrRemoteThreadFailed, "pid 4"): "Can't start loader thread in remote process.",
		errors.Wrap(injector.ErrModuleLoadFailed, "pid 4"):   "Remote process refused to load the module.",
		errors.New("something else"):                         "Injection failed.",
	}
	for err, want := range cases {
		if got := describe(err); got != want {
			t.Errorf("describe(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestRootRequiresTwoArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"game.exe"}, {"a", "b", "c"}} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		if err := cmd.Execute(); err == nil {
			t.Errorf("args %q accepted", args)
		}
	}
}
