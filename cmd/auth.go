package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

type leaseStatus struct {
	Path      string    `json:"path"`
	TokenKind string    `json:"token_type,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// AuthStatus reports the persisted lease without contacting the token endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	lease, err := r.leaseManager()
	if err != nil {
		return err
	}

	current := lease.Lease()
	if current.Token == "" {
		r.printer.Hint("no lease on disk; run 'spx auth refresh'")
		return nil
	}

	st := leaseStatus{
		Path:      r.config.LeasePath(),
		TokenKind: current.TokenKind,
		ExpiresAt: current.ExpiresAt,
		Expired:   lease.Expired(),
	}
	if st.Expired {
		r.writePlain("✗ Lease expired at %s\n", st.ExpiresAt.Format(time.RFC3339))
	} else {
		r.writePlain("✓ Lease valid until %s (%s left)\n", st.ExpiresAt.Format(time.RFC3339), time.Until(st.ExpiresAt).Round(time.Second))
	}
	return r.writePlain("Path: %s\n", st.Path)
}

// AuthRefresh forces a credential exchange and persists the new lease.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	lease, err := r.leaseManager()
	if err != nil {
		return err
	}
	if err := lease.Refresh(ctx); err != nil {
		return err
	}

	current := lease.Lease()
	r.logger.Info("lease refreshed", "expires_at", current.ExpiresAt)
	return r.writePlain("✓ Lease valid until %s\n", current.ExpiresAt.Format(time.RFC3339))
}
