package wslkit

import "strings"

// Launcher describes the executable entry point into the Linux subsystem and
// the host shells used to reach it when it is not on the PATH directly.
type Launcher struct {
	Name        string   // Bare launcher name, e.g. "wsl"
	Aliases     []string // Probed in order by discovery
	SystemShell string   // Host command interpreter, invoked as "<shell> /c"
	ScriptShell string   // Host scripting shell, invoked as "<shell> -Command"
}

// DefaultLauncher returns the stock WSL launcher.
func DefaultLauncher() Launcher {
	return Launcher{
		Name:        "wsl",
		Aliases:     []string{"wsl", "wsl.exe", `C:\Windows\System32\wsl.exe`},
		SystemShell: "cmd",
		ScriptShell: "powershell",
	}
}

// WithDefaults fills empty fields from DefaultLauncher.
func (l Launcher) WithDefaults() Launcher {
	def := DefaultLauncher()

	if strings.TrimSpace(l.Name) == "" {
		l.Name = def.Name
	}

	if len(l.Aliases) == 0 {
		if l.Name == def.Name {
			l.Aliases = def.Aliases
		} else {
			l.Aliases = []string{l.Name}
		}
	}

	if l.SystemShell == "" {
		l.SystemShell = def.SystemShell
	}

	if l.ScriptShell == "" {
		l.ScriptShell = def.ScriptShell
	}

	return l
}

// Command builds a launcher invocation with args.
func (l Launcher) Command(args ...string) *Command {
	return NewCommand(l.Name, args...)
}

// Quote wraps s in single quotes for a POSIX shell, escaping embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
