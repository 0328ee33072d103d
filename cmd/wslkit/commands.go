package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/browse"
	"github.com/ruffel/wslkit/coordinator"
	"github.com/ruffel/wslkit/reposync"
	"github.com/ruffel/wslkit/settings"
	"github.com/spf13/cobra"
)

var errLauncherUnavailable = errors.New("launcher not available")

func newCheckCmd(current func() *app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that commands can reach the Linux subsystem",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, out := current(), cmd.Context(), cmd.OutOrStdout()

			fmt.Fprintln(out, titleStyle.Render("wslkit check"))

			connected, err := a.connect(ctx, flags)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))

				return err
			}

			if connected {
				fmt.Fprintln(out, checkStyle.Render("✔ connected over ssh"))
			} else {
				available, err := a.coord.CheckAvailability().Wait(ctx)
				if err != nil {
					fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))

					return err
				}

				if !available {
					fmt.Fprintln(out, errorStyle.Render("✗ launcher not available"))

					return errLauncherUnavailable
				}

				fmt.Fprintln(out, checkStyle.Render("✔ launcher available"))
			}

			res, err := a.coord.TestConnectivity().Wait(ctx)
			if err != nil {
				return err
			}

			printResult(out, res)

			res, err = a.coord.TestHomeDirectoryExecution().Wait(ctx)
			if err != nil {
				return err
			}

			printResult(out, res)

			if !res.Success {
				return errors.New(res.Error)
			}

			return nil
		},
	}
}

func newExecCmd(current func() *app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Execute a command in the Linux subsystem",
		Long: `Executes a program in the Linux subsystem. Every argument reaches the
program unchanged; use "exec -- bash -c '<pipeline>'" for shell syntax.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := current(), cmd.Context()

			if _, err := a.connect(ctx, flags); err != nil {
				return err
			}

			res, err := a.coord.Execute(commandLine(args)).Wait(ctx)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), res.Output)

			if !res.Success {
				if res.Error != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(res.Error))
				}

				return fmt.Errorf("command failed with exit code %d", res.ExitCode)
			}

			return nil
		},
	}
}

func newLsCmd(current func() *app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory in the Linux subsystem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := current(), cmd.Context()

			if _, err := a.connect(ctx, flags); err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				home, err := a.coord.HomeDirectory().Wait(ctx)
				if err != nil {
					return err
				}

				path = home
			}

			state, err := a.coord.Browse(path).Wait(ctx)
			if err != nil {
				return err
			}

			printListing(cmd.OutOrStdout(), state)

			return nil
		},
	}
}

func newDistrosCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "distros",
		Short: "List installed distributions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, out := current(), cmd.Context(), cmd.OutOrStdout()

			distros, err := a.coord.Distributions().Wait(ctx)
			if err != nil {
				return err
			}

			if len(distros) == 0 {
				fmt.Fprintln(out, infoStyle.Render("no distributions found"))

				return nil
			}

			for _, d := range distros {
				fmt.Fprintln(out, d)
			}

			return nil
		},
	}
}

func newSyncCmd(current func() *app, flags *globalFlags) *cobra.Command {
	var url, branch, dir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone or refresh a repository and its submodules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, out := current(), cmd.Context(), cmd.OutOrStdout()

			if flags.useSettings {
				saved, err := a.store.Load()
				if err != nil && !errors.Is(err, settings.ErrNotFound) {
					return err
				}

				url = firstNonEmpty(url, saved.RepoURL)
				branch = firstNonEmpty(branch, saved.Branch)
				dir = firstNonEmpty(dir, saved.WorkDir)
			}

			if dir == "" {
				return errors.New("a working directory is required (--dir)")
			}

			if _, err := a.connect(ctx, flags); err != nil {
				return err
			}

			task := a.coord.Sync(url, branch, dir)

			a.follow(ctx, task.ID, func(ev coordinator.Event) {
				if ev.Kind == coordinator.KindProgress {
					fmt.Fprintln(out, progressStyle.Render("… "+ev.Message))
				}
			})

			status, err := task.Wait(ctx)
			if err != nil {
				return err
			}

			if status.State == reposync.StateFailed {
				fmt.Fprintln(out, errorStyle.Render("✗ "+status.Message))

				return errors.New(status.Reason)
			}

			fmt.Fprintln(out, checkStyle.Render("✔ "+status.Message))

			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "repository URL")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to clone (default main)")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory inside the subsystem")

	return cmd
}

func newPushCmd(current func() *app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "push <local> <remote>",
		Short: "Upload a file or directory over SFTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := current(), cmd.Context()

			if err := requireSession(a, cmd, flags); err != nil {
				return err
			}

			if err := a.session.Upload(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), checkStyle.Render("✔ uploaded "+args[0]+" to "+args[1]))

			return nil
		},
	}
}

func newPullCmd(current func() *app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote> <local>",
		Short: "Download a file or directory over SFTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := current(), cmd.Context()

			if err := requireSession(a, cmd, flags); err != nil {
				return err
			}

			if err := a.session.Download(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), checkStyle.Render("✔ downloaded "+args[0]+" to "+args[1]))

			return nil
		},
	}
}

func requireSession(a *app, cmd *cobra.Command, flags *globalFlags) error {
	connected, err := a.connect(cmd.Context(), flags)
	if err != nil {
		return err
	}

	if !connected {
		return fmt.Errorf("%s requires an ssh connection: %w", cmd.Name(), wslkit.ErrNotConnected)
	}

	return nil
}

func newSettingsCmd(current func() *app, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or save persisted settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, out := current(), cmd.OutOrStdout()

			saved, err := a.store.Load()
			if errors.Is(err, settings.ErrNotFound) {
				fmt.Fprintln(out, infoStyle.Render("no settings saved at "+a.store.Path()))

				return nil
			}

			if err != nil {
				return err
			}

			printSettings(out, a.store.Path(), saved)

			return nil
		},
	})

	var dir, url, branch, device string

	save := &cobra.Command{
		Use:   "save",
		Short: "Merge the connection flags and repository options into the saved settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current()

			saved, err := a.store.Load()
			if err != nil && !errors.Is(err, settings.ErrNotFound) {
				return err
			}

			if flags.host != "" || flags.sshAlias != "" {
				conn, _, err := a.connection(flags)
				if err != nil {
					return err
				}

				saved = saved.WithConnection(conn)
			}

			saved.WorkDir = firstNonEmpty(dir, saved.WorkDir)
			saved.RepoURL = firstNonEmpty(url, saved.RepoURL)
			saved.Branch = firstNonEmpty(branch, saved.Branch)
			saved.SelectedTargetDevice = firstNonEmpty(device, saved.SelectedTargetDevice)

			if err := a.store.Save(saved); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), checkStyle.Render("✔ settings saved to "+a.store.Path()))

			return nil
		},
	}

	save.Flags().StringVar(&dir, "dir", "", "working directory inside the subsystem")
	save.Flags().StringVar(&url, "url", "", "repository URL")
	save.Flags().StringVar(&branch, "branch", "", "repository branch")
	save.Flags().StringVar(&device, "device", "", "selected target device")

	cmd.AddCommand(save)

	return cmd
}

func printResult(out io.Writer, res wslkit.CommandResult) {
	if res.Success {
		fmt.Fprintln(out, checkStyle.Render("✔ "+strings.TrimSpace(res.Output)))

		return
	}

	fmt.Fprintln(out, errorStyle.Render("✗ "+res.Error))
}

func printListing(out io.Writer, state browse.State) {
	fmt.Fprintln(out, titleStyle.Render(state.CurrentPath))

	for _, e := range state.Entries {
		if e.IsDirectory {
			fmt.Fprintln(out, dirStyle.Render(e.Name+"/"))

			continue
		}

		fmt.Fprintln(out, e.Name)
	}
}

func printSettings(out io.Writer, path string, s settings.Settings) {
	fmt.Fprintln(out, titleStyle.Render("settings: "+path))

	rows := [][2]string{
		{"host", s.Host},
		{"port", portString(s.Port)},
		{"username", s.Username},
		{"password", mask(s.Password)},
		{"key auth", fmt.Sprint(s.UseKeyAuth)},
		{"key path", s.KeyPath},
		{"work dir", s.WorkDir},
		{"repository", s.RepoURL},
		{"branch", s.Branch},
		{"target device", s.SelectedTargetDevice},
	}

	for _, r := range rows {
		fmt.Fprintln(out, keyStyle.Render(r[0])+r[1])
	}
}

func portString(port int) string {
	if port == 0 {
		return ""
	}

	return fmt.Sprint(port)
}

func mask(value string) string {
	if value == "" {
		return ""
	}

	return "****"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// commandLine joins args into a shell command line, quoting each word that
// the remote shell would otherwise split or expand.
func commandLine(args []string) string {
	words := make([]string, len(args))
	for i, arg := range args {
		words[i] = quoteWord(arg)
	}

	return strings.Join(words, " ")
}

func quoteWord(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}

	return wslkit.Quote(s)
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	default:
		return !strings.ContainsRune("@%+=:,./_-", r)
	}
}
