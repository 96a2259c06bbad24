package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xrdtools/xrdmods/installer"
	"github.com/xrdtools/xrdmods/lib"
	"github.com/xrdtools/xrdmods/logger"
	"github.com/xrdtools/xrdmods/manager"
	"github.com/xrdtools/xrdmods/registry"
)

// app holds everything a command needs once settings are loaded.
type app struct {
	settings *Settings
	logger   *logger.Logger
	registry *registry.Registry
	resolver lib.ReleaseResolver
	manager  *manager.Manager
	out      io.Writer
}

type rootOptions struct {
	modFolder  string
	gameFolder string
	logLevel   string
	viper      *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	root := &cobra.Command{
		Use:   "xrdmods",
		Short: "Update and patch GUILTY GEAR Xrd add-ons",
		Long: `xrdmods keeps GUILTY GEAR Xrd add-ons up to date.

It checks each enabled add-on's GitHub repository for a newer release,
downloads the files for this platform into the mods folder and runs the
add-on installer against the game for add-ons flagged for automatic patching.

Run without a command for the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Close()
			return a.runMenu(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.modFolder, "mod-folder", "", "folder holding db.json and add-on files (default $"+registry.ModFolderEnv+" or the executable folder)")
	flags.StringVar(&opts.gameFolder, "game-folder", "", "GUILTY GEAR Xrd install folder (default: discovered through Steam)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	_ = opts.viper.BindPFlag(keyGameFolder, flags.Lookup("game-folder"))
	_ = opts.viper.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newUpdateCmd(opts),
		newCheckCmd(opts),
		newPatchCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newEnableCmd(opts, true),
		newEnableCmd(opts, false),
		newAutoPatchCmd(opts),
		newLocateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func (o *rootOptions) resolveModFolder() (string, error) {
	if o.modFolder != "" {
		return filepath.Abs(o.modFolder)
	}
	return registry.ModsRoot()
}

func (o *rootOptions) loadSettings() (*Settings, error) {
	modFolder, err := o.resolveModFolder()
	if err != nil {
		return nil, err
	}
	return loadSettings(o.viper, modFolder)
}

func (o *rootOptions) newApp(cmd *cobra.Command) (*app, error) {
	settings, err := o.loadSettings()
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(settings.LogLevel)
	log, err := logger.New(settings.ModFolder, level)
	if err != nil {
		log = logger.NewConsole(os.Stderr, level)
		log.Warn("Logging to console only", "error", err)
	}

	reg, err := registry.Load(settings.ModFolder)
	if err != nil {
		log.Close()
		return nil, err
	}
	if settings.GameFolder != "" {
		reg.GameFolder = settings.GameFolder
	}

	resolver, err := lib.NewResolver(lib.Options{
		APIURL:         settings.APIURL,
		UserAgent:      settings.UserAgent,
		ConnectTimeout: settings.ConnectTimeout,
		RequestTimeout: settings.RequestTimeout,
	})
	if err != nil {
		log.Close()
		return nil, err
	}

	platform := installer.CurrentPlatform()
	fetcher := installer.NewFetcher(installer.WithUserAgent(settings.UserAgent))
	runner := &installer.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}

	out := cmd.OutOrStdout()
	mgr := manager.New(reg, resolver,
		installer.NewUpdater(fetcher, platform, log),
		installer.NewPatcher(runner, platform, settings.InstallerTimeout, log),
		manager.WithPrompter(huhPrompter{}),
		manager.WithReporter(&statusReporter{w: out}),
		manager.WithLogger(log),
	)

	log.Debug("Loaded registry", "path", reg.Path(), "addons", len(reg.AddOns), "fresh", reg.Fresh())
	return &app{
		settings: settings,
		logger:   log,
		registry: reg,
		resolver: resolver,
		manager:  mgr,
		out:      out,
	}, nil
}

// withApp wraps a command body with app setup and teardown.
func withApp(opts *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := opts.newApp(cmd)
		if err != nil {
			return err
		}
		defer a.logger.Close()
		return run(cmd, a, args)
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var updateOpts manager.UpdateOptions
	cmd := &cobra.Command{
		Use:   "update [owner/name]",
		Short: "Download new releases and patch pending add-ons",
		Long:  "Without an argument, checks every enabled add-on and asks before downloading. With one, updates that add-on right away.",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if len(args) == 1 {
				out, err := a.manager.UpdateOne(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return out.Err
			}
			return a.update(cmd, updateOpts)
		}),
	}
	cmd.Flags().BoolVarP(&updateOpts.AssumeYes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&updateOpts.IncludeDisabled, "all", false, "include disabled add-ons")
	return cmd
}

func (a *app) update(cmd *cobra.Command, opts manager.UpdateOptions) error {
	summary, err := a.manager.UpdateAll(cmd.Context(), opts)
	if summary != nil {
		printSummary(a.out, summary)
	}
	if err != nil {
		return err
	}
	if summary.SaveErr != nil {
		return summary.SaveErr
	}
	if n := summary.Failures(); n > 0 {
		return fmt.Errorf("%d operation(s) failed", n)
	}
	return nil
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show which add-ons have a new release",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return a.check(cmd, all)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include disabled add-ons")
	return cmd
}

func (a *app) check(cmd *cobra.Command, all bool) error {
	results := a.manager.CheckAll(cmd.Context(), all)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d add-on(s) could not be checked", failed)
	}
	return nil
}

func newPatchCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "patch [owner/name]",
		Short: "Run add-on installers against the game",
		Long:  "Without an argument, patches every add-on flagged for automatic patching that is not patched yet.",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if len(args) == 1 {
				res, err := a.manager.PatchOne(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				return res.Err
			}
			return a.patchPending(cmd)
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "run the installer even if the add-on is already patched")
	return cmd
}

func (a *app) patchPending(cmd *cobra.Command) error {
	results, err := a.manager.PatchPending(cmd.Context())
	if len(results) == 0 && err == nil {
		fmt.Fprintln(a.out, subtleStyle.Render("Nothing to patch"))
		return nil
	}
	if saveErr := a.manager.Save(); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.State == installer.Failed {
			return errors.New("some add-ons could not be patched")
		}
	}
	return nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered add-ons",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			fmt.Fprintln(a.out, renderAddOnTable(a.registry))
			return nil
		}),
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	kinds := make([]string, 0, len(registry.Kinds()))
	for _, k := range registry.Kinds() {
		kinds = append(kinds, k.String())
	}
	return &cobra.Command{
		Use:       "add owner/name [kind]",
		Short:     "Track another GitHub repository",
		Long:      "Kinds: " + strings.Join(kinds, ", ") + ". Without a kind the add-on is only tracked, never downloaded.",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: kinds,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			kind := registry.Unknown
			if len(args) == 2 {
				if kind = registry.ParseKind(args[1]); kind == registry.Unknown {
					return fmt.Errorf("unknown kind %q, expected one of %s", args[1], strings.Join(kinds, ", "))
				}
			}
			added, err := a.manager.AddAddOn(args[0], kind)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, infoStyle.Render(fmt.Sprintf("Added %s (%s)", added.RepoURL(), added.Kind)))
			return nil
		}),
	}
}

func newEnableCmd(opts *rootOptions, enable bool) *cobra.Command {
	use, short := "enable", "Enable add-ons"
	if !enable {
		use, short = "disable", "Disable add-ons"
	}
	return &cobra.Command{
		Use:   use + " owner/name...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return a.manager.SetEnabled(args, enable)
		}),
	}
}

func newAutoPatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "autopatch owner/name on|off",
		Short:     "Turn automatic patching of an add-on on or off",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			switch args[1] {
			case "on":
				return a.manager.SetAutoPatch(args[0], true)
			case "off":
				return a.manager.SetAutoPatch(args[0], false)
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}
		}),
	}
}

func newLocateCmd(opts *rootOptions) *cobra.Command {
	var rescan bool
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the game folder through Steam and remember it",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return a.locate(rescan && a.settings.GameFolder == "")
		}),
	}
	cmd.Flags().BoolVar(&rescan, "rescan", false, "ignore the remembered folder")
	return cmd
}

func (a *app) locate(rescan bool) error {
	if rescan {
		a.registry.GameFolder = ""
	}
	folder, err := a.registry.ResolveGameFolder(registry.LocateGameFolder)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, infoStyle.Render("Game folder: "+folder))
	if _, err := os.Stat(registry.BinariesDir(folder)); err != nil {
		fmt.Fprintln(a.out, warnStyle.Render("Binaries/Win32 not found in the game folder"))
	}
	return a.manager.Save()
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage " + settingsFileName,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + settingsFileName + " into the mods folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modFolder, err := opts.resolveModFolder()
			if err != nil {
				return err
			}
			path, err := writeDefaultSettings(modFolder, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.loadSettings()
			if err != nil {
				return err
			}
			data, err := settingsTOML(s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline {
				return printVersionInfo(cmd.Context(), cmd.OutOrStdout(), nil)
			}
			s, err := opts.loadSettings()
			if err != nil {
				return err
			}
			resolver, err := lib.NewResolver(lib.Options{
				APIURL:         s.APIURL,
				UserAgent:      s.UserAgent,
				ConnectTimeout: s.ConnectTimeout,
				RequestTimeout: s.RequestTimeout,
			})
			if err != nil {
				return err
			}
			return printVersionInfo(cmd.Context(), cmd.OutOrStdout(), resolver)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "do not look up the latest release")
	return cmd
}

// runMenu is the interactive loop used when no command is given.
func (a *app) runMenu(cmd *cobra.Command) error {
	printWelcomeMessage(a.out)
	if a.registry.Fresh() {
		fmt.Fprintln(a.out, subtleStyle.Render("No db.json found, starting with the default add-ons"))
	}

	for {
		if err := cmd.Context().Err(); err != nil {
			fmt.Fprintln(a.out, "\nReceived interrupt signal. Exiting...")
			return nil
		}

		choice, err := showMainMenu()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "update":
			err = a.update(cmd, manager.UpdateOptions{})
		case "check":
			err = a.check(cmd, false)
		case "patch":
			err = a.patchPending(cmd)
		case "enable":
			var keys []string
			keys, err = selectAddOns(a.registry, "Enabled add-ons", func(ad *registry.AddOn) bool { return ad.Enabled })
			if err == nil {
				err = a.manager.SetEnabledExactly(keys)
			}
		case "autopatch":
			err = a.chooseAutoPatch()
		case "list":
			fmt.Fprintln(a.out, renderAddOnTable(a.registry))
		case "locate":
			err = a.locate(false)
		case "quit":
			return nil
		}

		if errors.Is(err, huh.ErrUserAborted) {
			continue
		}
		if err != nil {
			a.logger.Error("Action failed", "action", choice, "error", err)
		}
		fmt.Fprintln(a.out)
	}
}

func (a *app) chooseAutoPatch() error {
	keys, err := selectAddOns(a.registry, "Automatically patched add-ons", func(ad *registry.AddOn) bool { return ad.AutoPatch })
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for _, k := range a.registry.Keys() {
		ad, _ := a.registry.Get(k)
		if ad.AutoPatch != want[k] {
			if err := a.manager.SetAutoPatch(k, want[k]); err != nil {
				return err
			}
		}
	}
	return nil
}
