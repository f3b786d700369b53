// Package app wires one instance of every component for a running process.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/internal/checkout"
	"github.com/naveenspark/hogwarts/internal/config"
	"github.com/naveenspark/hogwarts/internal/session"
	"github.com/naveenspark/hogwarts/internal/store"
	"github.com/naveenspark/hogwarts/pkg/client"
)

// Services is passed to both front ends. Nothing in it is global.
type Services struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    store.Store
	Client   *client.Client
	Session  *session.Manager
	Cart     *cart.Cart
	Checkout *checkout.Submitter
}

// New opens the store and builds the components on top of it. The persisted
// cart is loaded; the session is not verified until Start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Services, error) {
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	return Assemble(ctx, cfg, logger, st), nil
}

// Assemble builds the components over an already open store.
func Assemble(ctx context.Context, cfg config.Config, logger *zap.Logger, st store.Store) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := client.New(cfg.APIURL,
		client.WithTimeout(cfg.Timeout()),
		client.WithLogger(logger.Named("client")),
	)
	sess := session.NewManager(c, st, logger.Named("session"))
	c.SetAuthenticator(sess)

	crt := cart.New(st, logger.Named("cart"))
	crt.Load(ctx)

	sub := checkout.New(c, crt,
		checkout.WithMaxBooks(cfg.MaxBooksPerOrder),
		checkout.WithLogger(logger.Named("checkout")),
	)

	return &Services{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Client:   c,
		Session:  sess,
		Cart:     crt,
		Checkout: sub,
	}
}

// Start verifies the persisted session. It blocks for the duration of the
// /auth/me call.
func (s *Services) Start(ctx context.Context) {
	s.Session.Initialize(ctx)
}

// Close releases the store and flushes the logger.
func (s *Services) Close() error {
	err := s.Store.Close()
	if serr := s.Logger.Sync(); serr != nil && !isSyncNoise(serr) {
		err = errors.Join(err, serr)
	}
	return err
}
