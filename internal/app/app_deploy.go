package app

import (
	"fmt"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// BuildStatus is the deploy panel summary.
type BuildStatus struct {
	Pending bool   `json:"pending"`
	License string `json:"license,omitempty"`
}

// ============================================================
// Deploy & Checkout
// ============================================================

func (a *App) Deploy() (domain.Build, error) {
	return a.rt.Deploy.Deploy(a.ctx)
}

func (a *App) GetBuildStatus() (BuildStatus, error) {
	_, pending, err := a.rt.Deploy.PendingBuild()
	if err != nil {
		return BuildStatus{}, err
	}
	license, _, err := a.rt.Deploy.ActiveLicense()
	if err != nil {
		return BuildStatus{}, err
	}
	return BuildStatus{Pending: pending, License: license}, nil
}

// Checkout returns the redirect URL for productID. The frontend opens it.
func (a *App) Checkout(productID string) (string, error) {
	return a.rt.Deploy.Checkout(a.ctx, productID)
}

// ============================================================
// Visual Config
// ============================================================

func (a *App) GetVisualConfig() domain.VisualConfig {
	return a.rt.Visual.Load()
}

func (a *App) SaveVisualConfig(cfg domain.VisualConfig) error {
	return a.rt.Visual.Save(a.ctx, cfg)
}

// ============================================================
// MCP Approvals
// ============================================================

// ListApprovals returns the actions a standalone MCP server is waiting on.
func (a *App) ListApprovals() ([]storage.Approval, error) {
	return a.rt.Approvals.ListPending()
}

// ApproveAction allows a pending destructive MCP action.
func (a *App) ApproveAction(id string) error {
	return a.resolveApproval(id, true)
}

// RejectAction denies a pending destructive MCP action.
func (a *App) RejectAction(id string) error {
	return a.resolveApproval(id, false)
}

func (a *App) resolveApproval(id string, approved bool) error {
	ok, err := a.rt.Approvals.ResolveApproval(id, approved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no pending approval %s", id)
	}
	// The watcher dismisses the prompt on its next poll
	a.log.Info("approval resolved", zap.String("id", id), zap.Bool("approved", approved))
	return nil
}
