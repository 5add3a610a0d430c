package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/chatapi"
	appconfig "github.com/wolfman30/raven-widget/internal/config"
	"github.com/wolfman30/raven-widget/internal/convstore"
	"github.com/wolfman30/raven-widget/internal/observability/metrics"
	"github.com/wolfman30/raven-widget/internal/storage"
	"github.com/wolfman30/raven-widget/internal/visitor"
	"github.com/wolfman30/raven-widget/internal/widget"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

// Widget is a mounted widget and the resources it owns.
type Widget struct {
	Controller *widget.Controller
	Session    *chat.Session
	Store      storage.Store
}

// Close releases the storage backend.
func (w *Widget) Close() error {
	if w == nil || w.Store == nil {
		return nil
	}
	return w.Store.Close()
}

// BuildWidget mounts a widget from cfg: it opens storage, resolves the
// visitor id and wires the API client, session and controller. The returned
// controller is not yet initialized. A nil reg disables metrics.
func BuildWidget(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*Widget, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	w, err := buildWidgetWithStore(ctx, cfg, store, logger, reg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return w, nil
}

func buildWidgetWithStore(ctx context.Context, cfg *appconfig.Config, store storage.Store, logger *logging.Logger, reg prometheus.Registerer) (*Widget, error) {
	businessID := cfg.Host.BusinessID
	visitorID, err := visitor.NewResolver(store).GetOrCreateVisitorID(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: resolve visitor id: %w", err)
	}

	var m *metrics.WidgetMetrics
	if reg != nil {
		m = metrics.NewWidgetMetrics(reg)
	}

	client, err := chatapi.New(chatapi.Config{
		BaseURL:        cfg.Host.APIURL,
		SendTimeout:    cfg.SendTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.Component("chatapi"),
		Metrics:        m,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: api client: %w", err)
	}

	session := chat.NewSession(businessID, visitorID, client, convstore.New(store), logger.Component("chat"))
	ctrl := widget.New(session, widget.Options{
		Locale:          cfg.Locale,
		EndOverlayDelay: cfg.EndOverlayDelay,
		Logger:          logger.Component("widget"),
		Metrics:         m,
	})
	logger.Info("widget mounted", "business_id", businessID, "visitor_id", visitorID, "storage", cfg.StorageBackend)
	return &Widget{Controller: ctrl, Session: session, Store: store}, nil
}
