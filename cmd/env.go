package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/notify"
	"github.com/carelane/medcheck/internal/pipeline"
	"github.com/carelane/medcheck/internal/store"
	"github.com/carelane/medcheck/pkg/oracle"
)

// env bundles the subsystems a command needs.
type env struct {
	Store     store.Store
	Validator *pipeline.Validator
	Notifier  *notify.Notifier
}

// initEnv wires the store, oracle client, validator, and notifier from the
// loaded config. Offline mode swaps the oracle for a stub.
func initEnv(ctx context.Context, offline bool) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	var client oracle.Client
	if offline {
		client = &oracle.StubClient{}
		zap.L().Info("offline mode, oracle stubbed")
	} else {
		if cfg.Oracle.Key == "" {
			_ = st.Close()
			return nil, eris.New("MEDCHECK_ORACLE_KEY not set (use --offline to run without the API)")
		}
		client = oracle.NewClient(cfg.Oracle.Key)
	}

	return &env{
		Store:     st,
		Validator: pipeline.NewValidator(client, cfg.Validator, cfg.Oracle),
		Notifier:  notify.NewNotifier(cfg.Notify),
	}, nil
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}
