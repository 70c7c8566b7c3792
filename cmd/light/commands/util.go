package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/log"
	"github.com/tendermint/lightcore/light"
	dbp "github.com/tendermint/lightcore/light/provider/db"
	"github.com/tendermint/lightcore/light/store"
	dbs "github.com/tendermint/lightcore/light/store/db"
)

const (
	storeDBName    = "light-store"
	providerDBName = "light-provider"
)

// node holds the databases and verifier a command works with.
type node struct {
	storeDB    dbm.DB
	providerDB dbm.DB

	store    store.Store
	provider *dbp.Provider
	verifier *light.Verifier
}

func openNode(conf *config.Config, logger log.Logger, metrics *light.Metrics) (*node, error) {
	if conf.ChainID == "" {
		return nil, errors.New("chain-id is not set; run init or pass --chain-id")
	}

	backend := dbm.BackendType(conf.DBBackend)
	storeDB, err := dbm.NewDB(storeDBName, backend, conf.DBDir())
	if err != nil {
		return nil, fmt.Errorf("opening light store: %w", err)
	}
	providerDB, err := dbm.NewDB(providerDBName, backend, conf.DBDir())
	if err != nil {
		storeDB.Close()
		return nil, fmt.Errorf("opening imported blocks: %w", err)
	}

	n := &node{
		storeDB:    storeDB,
		providerDB: providerDB,
		store:      dbs.New(storeDB, conf.ChainID),
	}
	if n.provider, err = dbp.New(providerDB, conf.ChainID); err != nil {
		n.Close()
		return nil, err
	}

	lvl, err := conf.Light.ParseTrustLevel()
	if err != nil {
		n.Close()
		return nil, err
	}
	if metrics == nil {
		metrics = light.NopMetrics()
	}
	n.verifier, err = light.NewVerifier(conf.ChainID, n.provider, conf.Light.TrustingPeriod,
		light.TrustLevel(lvl),
		light.MaxClockDrift(conf.Light.MaxClockDrift),
		light.Logger(logger),
		light.WithMetrics(metrics),
	)
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *node) Close() error {
	err := n.storeDB.Close()
	if perr := n.providerDB.Close(); err == nil {
		err = perr
	}
	return err
}

// startMetrics serves Prometheus metrics when enabled and returns the
// metrics to report to together with a function stopping the server.
func startMetrics(conf *config.Config, logger log.Logger) (*light.Metrics, func()) {
	if !conf.Instrumentation.Prometheus {
		return light.NopMetrics(), func() {}
	}

	srv := &http.Server{
		Addr:              conf.Instrumentation.PrometheusListenAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus server", "err", err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("stopping prometheus server", "err", err)
		}
	}
	return light.PrometheusMetrics(conf.Instrumentation.Namespace, "chain_id", conf.ChainID), stop
}
