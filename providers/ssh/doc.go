// Package ssh provides the remote shell session that wslkit dispatches
// commands through when a host is configured.
//
// A Session holds at most one live client. Commands run on one-shot exec
// channels whose exit status is polled at a fixed interval, bounded by an
// execution timeout and the caller's context. Failures never escape as
// errors: Connect reports a bool and Execute folds everything into a
// wslkit.CommandResult.
//
// Host keys are not verified. The subsystem hosts this package targets are
// throwaway developer machines that regenerate keys on reinstall.
//
// Usage:
//
//	session := ssh.New(ssh.WithLogger(logger))
//	if session.Connect(ctx, wslkit.Connection{Host: "devbox", Username: "dev", Password: "secret"}) {
//		res := session.Execute(ctx, "uname -a")
//	}
//	defer session.Disconnect()
package ssh
