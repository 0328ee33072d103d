package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. The returned func releases whatever
// the invocation wired up and must be called after Execute.
func newRootCmd(newRunner RunnerFactory) (*cobra.Command, func()) {
	flags := &globalFlags{}

	var a *app

	rootCmd := &cobra.Command{
		Use:          "wslkit",
		Short:        "Run commands inside the Linux subsystem",
		Long:         `Executes commands in the Linux subsystem over SSH when a host is given, or through the local launcher otherwise.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			a, err = newApp(newRunner)

			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.host, "host", "", "SSH host; commands run locally when empty")
	pf.IntVar(&flags.port, "port", 0, "SSH port (default 22)")
	pf.StringVar(&flags.user, "user", "", "SSH username")
	pf.StringVar(&flags.password, "password", "", "SSH password")
	pf.StringVar(&flags.key, "key", "", "private key file; enables key authentication")
	pf.StringVar(&flags.sshAlias, "ssh-alias", "", "host alias resolved from the ssh config file")
	pf.StringVar(&flags.sshConfig, "ssh-config", "", "ssh config file (default ~/.ssh/config)")
	pf.BoolVar(&flags.useSettings, "use-settings", false, "connect with the saved settings")

	current := func() *app { return a }

	rootCmd.AddCommand(
		newCheckCmd(current, flags),
		newExecCmd(current, flags),
		newLsCmd(current, flags),
		newDistrosCmd(current),
		newSyncCmd(current, flags),
		newPushCmd(current, flags),
		newPullCmd(current, flags),
		newSettingsCmd(current, flags),
	)

	return rootCmd, func() {
		if a != nil {
			a.close()
		}
	}
}
