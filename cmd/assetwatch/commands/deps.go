package commands

import (
	"fmt"
	"log/slog"

	"github.com/moonwalker/assetwatch/pkg/config"
	"github.com/moonwalker/assetwatch/pkg/datasource"
	"github.com/moonwalker/assetwatch/pkg/elastic"
	"github.com/moonwalker/assetwatch/pkg/notify"
	"github.com/moonwalker/assetwatch/pkg/registry"
	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/rules/engine"
	"github.com/moonwalker/assetwatch/pkg/rules/repo"
	"github.com/moonwalker/assetwatch/pkg/store"
	boltstore "github.com/moonwalker/assetwatch/pkg/store/bolt"
	memstore "github.com/moonwalker/assetwatch/pkg/store/mem"
	natskvstore "github.com/moonwalker/assetwatch/pkg/store/natskv"
	r2store "github.com/moonwalker/assetwatch/pkg/store/r2"
	redistore "github.com/moonwalker/assetwatch/pkg/store/redis"
	s3store "github.com/moonwalker/assetwatch/pkg/store/s3"
	"github.com/moonwalker/assetwatch/pkg/streams"
	"github.com/moonwalker/assetwatch/pkg/variables"
)

const (
	ALERTS_BUCKET = "assetwatch-alerts"
	VARS_BUCKET   = "assetwatch-vars"
)

// deps are the components built from configuration, released by close.
type deps struct {
	registry  *registry.Registry
	variables *variables.Store
	data      datasource.Source
	notifier  notify.Notifier
	history   *notify.History
	closers   []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (d *deps) engine(cfg *config.Config) *engine.Engine {
	return engine.NewEngine(d.registry, d.data, d.notifier, rules.NewEvaluator(d.variables), engine.Options{
		Tick:         cfg.Tick,
		AlertTimeout: cfg.AlertTimeout,
		Workers:      cfg.Workers,
		Refire:       cfg.Refire,
		Location:     cfg.Location(),
		Refresh:      cfg.Repo.Kind != "memory",
	})
}

func natsOptions(cfg config.NatsConfig) streams.Options {
	return streams.Options{
		URL:             cfg.URL,
		NkeyUser:        cfg.NkeyUser,
		NkeySeed:        cfg.NkeySeed,
		CredentialsPath: cfg.Credentials,
		Name:            "assetwatch",
	}
}

// buildDeps loads alerts and variables and wires the data source and the
// notification sinks.
func buildDeps(cfg *config.Config) (*deps, error) {
	d := &deps{}

	alertRepo, err := openAlertRepo(cfg)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, alertRepo.Close)
	d.registry = registry.New(alertRepo)
	if err := d.registry.Load(); err != nil {
		d.close()
		return nil, err
	}

	var varStore store.Store
	if cfg.Variables.Kind != "memory" {
		varStore, err = openStore(cfg.Variables, VARS_BUCKET, cfg)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, func() { varStore.Close() })
	}
	d.variables = variables.New(varStore)
	if err := d.variables.Load(); err != nil {
		d.close()
		return nil, err
	}

	d.data = openDatasource(cfg.Datasource)

	sinks := notify.Multi{notify.NewLog(slog.Default())}
	if cfg.Notify.Nats.Enabled {
		n := notify.NewNats(natsOptions(cfg.Nats), cfg.Notify.Nats.Subject)
		d.closers = append(d.closers, n.Close)
		sinks = append(sinks, n)
	}
	if cfg.Notify.Webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Token))
	}
	if len(cfg.Notify.Elastic.Addresses) > 0 {
		es, err := elastic.NewClient(cfg.Notify.Elastic.Addresses...)
		if err != nil {
			d.close()
			return nil, err
		}
		d.history = notify.NewHistory(es, cfg.Notify.Elastic.Index)
		sinks = append(sinks, d.history)
	}
	d.notifier = sinks

	return d, nil
}

func openAlertRepo(cfg *config.Config) (repo.AlertRepo, error) {
	switch cfg.Repo.Kind {
	case "memory":
		return repo.NewInMemoryAlertRepo(), nil
	case "disk":
		return repo.NewDiskAlertRepo(cfg.Repo.Path)
	case "postgres":
		return repo.NewPostgresAlertRepo(cfg.Repo.URL)
	}
	s, err := openStore(cfg.Repo, ALERTS_BUCKET, cfg)
	if err != nil {
		return nil, err
	}
	return repo.NewStoreAlertRepo(cfg.Repo.Kind, s), nil
}

func openStore(cfg config.RepoConfig, bucket string, root *config.Config) (store.Store, error) {
	if cfg.Bucket != "" {
		bucket = cfg.Bucket
	}
	switch cfg.Kind {
	case "memory":
		return memstore.New(), nil
	case "bolt":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bolt store needs a path")
		}
		return boltstore.New(cfg.Path, bucket), nil
	case "redis":
		return redistore.New(cfg.URL), nil
	case "s3":
		return s3store.New(bucket), nil
	case "r2":
		return r2store.New(r2store.Options{
			AccountID:       root.R2.AccountID,
			AccessKeyID:     root.R2.AccessKeyID,
			AccessKeySecret: root.R2.AccessKeySecret,
			Endpoint:        root.R2.Endpoint,
			Bucket:          bucket,
		}), nil
	case "natskv":
		opts := natsOptions(root.Nats)
		if cfg.URL != "" {
			opts.URL = cfg.URL
		}
		return natskvstore.New(opts, bucket), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

func openDatasource(cfg config.DatasourceConfig) datasource.Source {
	if cfg.Kind == "http" {
		h := datasource.NewHTTP(cfg.BaseURL, cfg.Token, cfg.Timeout)
		if len(cfg.Paths) > 0 {
			paths := make(map[string]string, len(datasource.DefaultPaths))
			for m, p := range datasource.DefaultPaths {
				paths[m] = p
			}
			for m, p := range cfg.Paths {
				paths[m] = p
			}
			h.WithPaths(paths)
		}
		return datasource.Router{
			rules.MODULE_LOANS:     h,
			rules.MODULE_INVENTORY: h,
			rules.MODULE_HANDOVER:  h,
		}
	}
	return datasource.NewStatic()
}
