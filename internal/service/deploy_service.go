package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
)

var (
	ErrDeployInProgress = errors.New("a deploy is already running")
	ErrNoPendingBuild   = errors.New("no pending build, deploy first")
	ErrInvalidProduct   = errors.New("product id must not be empty")
)

const deployKey = "deploy"

// Catalog resolves the checkout page for a product.
type Catalog interface {
	CheckoutURL(productID string) (string, error)
}

// URLCatalog builds "<base>?product=<id>" checkout links.
type URLCatalog struct {
	BaseURL string
}

func (c URLCatalog) CheckoutURL(productID string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("checkout base url: %w", err)
	}
	q := u.Query()
	q.Set("product", productID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BuildPublisher receives every deployed build. *publish.Publisher
// implements it.
type BuildPublisher interface {
	Publish(ctx context.Context, b domain.Build) error
}

type workspaceReader interface {
	State() domain.PageState
}

// ─────────────────────────────────────────────────────────────
// Deploy Service — pending build, checkout hand-off, publishing
// ─────────────────────────────────────────────────────────────

type DeployService struct {
	workspace workspaceReader
	settings  domain.SettingsStore
	publisher BuildPublisher
	catalog   Catalog
	guard     inFlightGuard
	emitter   EventEmitter
	log       *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewDeployService creates a DeployService. publisher may be nil.
func NewDeployService(
	workspace workspaceReader,
	settings domain.SettingsStore,
	publisher BuildPublisher,
	catalog Catalog,
	emitter EventEmitter,
	log *zap.Logger,
) *DeployService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DeployService{
		workspace: workspace,
		settings:  settings,
		publisher: publisher,
		catalog:   catalog,
		emitter:   emitter,
		log:       log,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// Deploy serializes the active workspace into the pending build and
// pushes it to the publish sinks. An empty workspace is refused and
// nothing is written. Sink failures are logged, not returned.
func (s *DeployService) Deploy(ctx context.Context) (domain.Build, error) {
	if !s.guard.TryLock(deployKey) {
		return domain.Build{}, ErrDeployInProgress
	}
	defer s.guard.Unlock(deployKey)

	state := s.workspace.State()
	if len(state.Elements) == 0 {
		return domain.Build{}, fmt.Errorf("deploy: %w", editor.ErrEmptyWorkspace)
	}

	markup := editor.Render(state.Elements)
	if err := s.settings.Set(domain.SettingPendingBuild, markup); err != nil {
		return domain.Build{}, fmt.Errorf("store pending build: %w", err)
	}
	license, _, err := s.settings.Get(domain.SettingActiveLicense)
	if err != nil {
		s.log.Warn("read active license", zap.Error(err))
	}

	build := domain.Build{
		ID:         s.newID(),
		Page:       state.Page,
		Markup:     markup,
		License:    license,
		DeployedAt: s.now(),
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, build); err != nil {
			s.log.Warn("publish build", zap.String("build", build.ID), zap.Error(err))
		}
	}

	s.log.Info("build deployed",
		zap.String("build", build.ID),
		zap.String("page", build.Page),
		zap.Int("elements", len(state.Elements)))
	s.emitter.Emit(ctx, EventBuildDeployed, build)
	return build, nil
}

// PendingBuild returns the markup of the last deploy.
func (s *DeployService) PendingBuild() (string, bool, error) {
	return s.settings.Get(domain.SettingPendingBuild)
}

// ActiveLicense returns the product id chosen at the last checkout.
func (s *DeployService) ActiveLicense() (string, bool, error) {
	return s.settings.Get(domain.SettingActiveLicense)
}

// Checkout records productID as the active license and returns the
// catalog redirect. It requires a pending build.
func (s *DeployService) Checkout(ctx context.Context, productID string) (string, error) {
	if strings.TrimSpace(productID) == "" {
		return "", ErrInvalidProduct
	}
	_, ok, err := s.settings.Get(domain.SettingPendingBuild)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoPendingBuild
	}

	redirect, err := s.catalog.CheckoutURL(productID)
	if err != nil {
		return "", err
	}
	if err := s.settings.Set(domain.SettingActiveLicense, productID); err != nil {
		return "", fmt.Errorf("store license: %w", err)
	}
	s.emitter.Emit(ctx, EventLicenseActivated, productID)
	return redirect, nil
}

// Wait blocks until an in-flight deploy finishes or ctx is done.
func (s *DeployService) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}
