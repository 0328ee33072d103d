package dispatch

import (
	"github.com/ruffel/wslkit"
)

// Strategy names, in ladder order.
const (
	StrategyBashHome    = "bash-home"
	StrategyShHome      = "sh-home"
	StrategyBashTilde   = "bash-tilde"
	StrategyBashWhoami  = "bash-whoami"
	StrategyPassthrough = "passthrough"
	StrategyCmd         = "cmd"
	StrategyPowerShell  = "powershell"
)

// strategy is one way of handing a command to the launcher.
type strategy struct {
	name  string
	build func(l wslkit.Launcher, home, command string) *wslkit.Command
}

// ladder is ordered from most specific to most permissive. The home-directory
// forms come first because a launcher started from a Windows directory lands
// in a translated /mnt path.
var ladder = []strategy{
	{
		name: StrategyBashHome,
		build: func(l wslkit.Launcher, home, command string) *wslkit.Command {
			return l.Command("bash", "-c", "cd "+wslkit.Quote(home)+" && "+command)
		},
	},
	{
		name: StrategyShHome,
		build: func(l wslkit.Launcher, home, command string) *wslkit.Command {
			return l.Command("sh", "-c", "cd "+wslkit.Quote(home)+" && "+command)
		},
	},
	{
		name: StrategyBashTilde,
		build: func(l wslkit.Launcher, _, command string) *wslkit.Command {
			return l.Command("bash", "-c", "cd ~ && "+command)
		},
	},
	{
		name: StrategyBashWhoami,
		build: func(l wslkit.Launcher, _, command string) *wslkit.Command {
			return l.Command("bash", "-c", "cd /home/$(whoami) && "+command)
		},
	},
	{
		name: StrategyPassthrough,
		build: func(l wslkit.Launcher, _, command string) *wslkit.Command {
			words, err := wslkit.SplitWords(command)
			if err != nil {
				words = []string{command}
			}

			return l.Command(words...)
		},
	},
	{
		name: StrategyCmd,
		build: func(l wslkit.Launcher, _, command string) *wslkit.Command {
			return wslkit.NewCommand(l.SystemShell, "/c", l.Name+" "+command)
		},
	},
	{
		name: StrategyPowerShell,
		build: func(l wslkit.Launcher, _, command string) *wslkit.Command {
			return wslkit.NewCommand(l.ScriptShell, "-Command", l.Name+" "+command)
		},
	},
}

// StrategyNames returns the ladder's strategy names in the order they are tried.
func StrategyNames() []string {
	names := make([]string, len(ladder))
	for i, s := range ladder {
		names[i] = s.name
	}

	return names
}
