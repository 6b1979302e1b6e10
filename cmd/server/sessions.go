package main

import (
	"github.com/spf13/cobra"

	"nestbook/internal/session"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		RunE:  runPrune,
	})
	return cmd
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// pruning never reads the cookie, so the codec is not needed
	n, err := session.NewManager(st.sessions, nil, cfg.Session.TTL).Prune(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("removed %d expired sessions\n", n)
	return nil
}
