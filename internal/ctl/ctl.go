// Package ctl implements gophgramctl, the offline maintenance tool for the
// credential and artifact directories of a gophgram server.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/server/artifacts"
	"github.com/dmitrijs2005/gophgram/internal/server/config"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
)

type options struct {
	configFile  string
	sessionsDir string
	filesDir    string
}

// load resolves directories the way the server does, letting explicit flags
// win.
func (o *options) load() (*config.Config, error) {
	var args []string
	if o.configFile != "" {
		args = []string{"-c", o.configFile}
	}
	cfg, err := config.Load(args, ".env")
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if o.sessionsDir != "" {
		cfg.SessionsDir = o.sessionsDir
	}
	if o.filesDir != "" {
		cfg.FilesDir = o.filesDir
	}
	return cfg, nil
}

func (o *options) store() (*credentials.Store, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(cfg.SessionsDir, []byte(cfg.SecretKey))
}

// NewRootCmd builds the command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "gophgramctl",
		Short:         "Maintain gophgram credentials and staged downloads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "server config file (JSON or TOML)")
	root.PersistentFlags().StringVar(&o.sessionsDir, "sessions", "", "credential directory (overrides config)")
	root.PersistentFlags().StringVar(&o.filesDir, "files", "", "staged download directory (overrides config)")

	root.AddCommand(newSessionsCmd(o), newArtifactsCmd(o))
	return root
}

func newSessionsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage credentials",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List credentials with their auth state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.store()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATE\tPEERS\tMODIFIED")
			for _, e := range entries {
				state, peers := describe(cmd.Context(), store, e)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, state, peers, e.ModTime.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete a credential so its cookie stops working",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.store()
			if err != nil {
				return err
			}
			id := args[0]
			if _, err := store.Resolve(id); err != nil {
				if errors.Is(err, common.ErrForbidden) {
					return fmt.Errorf("unknown session %q", id)
				}
				return err
			}
			if err := store.Remove(id); err != nil {
				return fmt.Errorf("revoking %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked session: %s\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, revoke)
	return cmd
}

// describe reads the auth state and the peer cache size without failing
// the listing.
func describe(ctx context.Context, store *credentials.Store, e credentials.Entry) (state, peers string) {
	const unreadable = "unreadable"

	cred, err := store.Open(ctx, e.Path)
	if err != nil {
		return unreadable, "-"
	}
	defer cred.Close()

	st, err := cred.State(ctx)
	if err != nil {
		return unreadable, "-"
	}
	n, err := cred.PeerCount(ctx)
	if err != nil {
		return string(st), "-"
	}
	return string(st), strconv.Itoa(n)
}

func newArtifactsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage staged downloads",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove staged and partial downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.ArtifactTTL
			}

			stager, err := artifacts.NewStager(cfg.FilesDir)
			if err != nil {
				return err
			}
			res, err := stager.Prune(time.Now().Add(-olderThan))
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d artifacts and %d partial downloads\n", res.Artifacts, res.Partials)
			return err
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age (defaults to the configured artifact TTL)")

	rm := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove staged downloads by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			stager, err := artifacts.NewStager(cfg.FilesDir)
			if err != nil {
				return err
			}

			var errs []error
			for _, id := range args {
				if _, ok := stager.Path(id); !ok {
					errs = append(errs, fmt.Errorf("unknown artifact %q", id))
					continue
				}
				if err := stager.Remove(id); err != nil {
					errs = append(errs, fmt.Errorf("removing %s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed artifact: %s\n", id)
			}
			return errors.Join(errs...)
		},
	}

	cmd.AddCommand(prune, rm)
	return cmd
}
