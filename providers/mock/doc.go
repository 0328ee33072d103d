// Package mock provides testify/mock implementations of the wslkit
// interfaces for unit tests of code built on the dispatcher, discovery,
// browsing and sync layers.
//
// Usage:
//
//	runner := mock.NewProcessRunner()
//	runner.OnArgs("wsl", "whoami").Return(mock.Buffered("dev\n", 0), nil)
//	// pass runner to discovery.New
package mock
