package bootstrap

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/raven-widget/internal/config"
	"github.com/wolfman30/raven-widget/internal/mockapi"
	"github.com/wolfman30/raven-widget/internal/visitor"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), nil, logging.Discard(), false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), false); client != nil {
		t.Fatalf("expected nil client for empty address")
	}
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cases := []struct {
		name string
		cfg  appconfig.Config
	}{
		{name: "memory", cfg: appconfig.Config{StorageBackend: "memory"}},
		{name: "sqlite", cfg: appconfig.Config{StorageBackend: "sqlite", StoragePath: filepath.Join(t.TempDir(), "w.db")}},
		{name: "redis", cfg: appconfig.Config{StorageBackend: "redis", RedisAddr: mr.Addr(), RedisKeyPrefix: "raven:"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := OpenStore(context.Background(), &tc.cfg, logging.Discard())
			if err != nil {
				t.Fatalf("open %s: %v", tc.name, err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Set(ctx, "k", "v"); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, ok, err := store.Get(ctx, "k")
			if err != nil || !ok || got != "v" {
				t.Fatalf("get = %q, %v, %v", got, ok, err)
			}
		})
	}
	if !mr.Exists("raven:k") {
		t.Fatalf("expected redis key to be prefixed")
	}
}

func TestOpenStoreErrors(t *testing.T) {
	_, err := OpenStore(context.Background(), &appconfig.Config{StorageBackend: "etcd"}, logging.Discard())
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	_, err = OpenStore(context.Background(), &appconfig.Config{StorageBackend: "postgres"}, logging.Discard())
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
	if _, err := OpenStore(context.Background(), nil, logging.Discard()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildWidgetRequiresHostConfig(t *testing.T) {
	_, err := BuildWidget(context.Background(), &appconfig.Config{StorageBackend: "memory"}, logging.Discard(), nil)
	if !errors.Is(err, appconfig.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestBuildWidgetMountsAgainstAPI(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(mockapi.Config{Logger: logging.Discard()}).Routes())
	defer srv.Close()

	cfg := &appconfig.Config{
		Host:           appconfig.HostConfig{BusinessID: "demo", APIURL: srv.URL},
		HostProvided:   true,
		Locale:         "en_US.UTF-8",
		StorageBackend: "memory",
	}
	reg := prometheus.NewRegistry()
	w, err := BuildWidget(context.Background(), cfg, logging.Discard(), reg)
	if err != nil {
		t.Fatalf("build widget: %v", err)
	}
	defer w.Close()

	stored, ok, err := w.Store.Get(context.Background(), visitor.Key("demo"))
	if err != nil || !ok || stored != w.Session.VisitorID() {
		t.Fatalf("visitor id not persisted: %q %v %v", stored, ok, err)
	}

	ctrl := w.Controller
	ctrl.Run(context.Background(), ctrl.Init())
	if err := ctrl.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if items := ctrl.Items(); len(items) != 1 || items[0].Text != "Hello! How can I help you?" {
		t.Fatalf("unexpected greeting: %+v", items)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected widget metrics to be registered")
	}
}
