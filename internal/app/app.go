// Package app assembles services and HTTP handlers over one repository set.
package app

import (
	"context"
	"time"

	"parcelhop/internal/config"
	h "parcelhop/internal/http/handlers"
	"parcelhop/internal/payments"
	"parcelhop/internal/repositories"
	"parcelhop/internal/services"
)

type Options struct {
	FeeRate         float64
	MaxAttempts     int
	DeliveryCodeKey string
	Provider        services.EscrowProvider
	Notifier        services.Notifier
	Now             func() time.Time
	// HashCost overrides the bcrypt cost of delivery codes; zero keeps the default.
	HashCost int
}

// OptionsFromEnv maps configuration onto Options. Provider and Notifier are
// left for the caller.
func OptionsFromEnv(env config.Env) Options {
	return Options{
		FeeRate:         env.PlatformFeeRate,
		MaxAttempts:     env.DeliveryMaxAttempts,
		DeliveryCodeKey: env.DeliveryCodeKey,
	}
}

type App struct {
	Repos      repositories.Set
	Ledger     *services.CapacityLedger
	Verifier   *services.DeliveryVerifier
	Escrow     *services.EscrowService
	Matching   *services.MatchingService
	Reputation *services.ReputationService
	Trips      *services.TripService
	Packages   *services.PackageService
	Docs       services.DocsService
}

func New(repos repositories.Set, opts Options) *App {
	if opts.Notifier == nil {
		opts.Notifier = services.LogNotifier{}
	}
	if opts.Provider == nil {
		opts.Provider = payments.NewSandbox()
	}
	a := &App{Repos: repos}

	a.Ledger = services.NewCapacityLedger(repos.Reservations, repos.Trips)
	a.Ledger.Now = opts.Now
	a.Verifier = services.NewDeliveryVerifier(repos.DeliveryCodes, opts.DeliveryCodeKey, opts.MaxAttempts)
	a.Verifier.Now = opts.Now
	a.Verifier.HashCost = opts.HashCost
	a.Escrow = &services.EscrowService{
		Transactions: repos.Transactions,
		Packages:     repos.Packages,
		Trips:        repos.Trips,
		Ledger:       a.Ledger,
		Verifier:     a.Verifier,
		KYC:          services.UserKYC{Users: repos.Users},
		Provider:     opts.Provider,
		Notifier:     opts.Notifier,
		FeeRate:      opts.FeeRate,
		Now:          opts.Now,
	}
	a.Matching = &services.MatchingService{
		Trips:    repos.Trips,
		Packages: repos.Packages,
		Ledger:   a.Ledger,
		Escrow:   a.Escrow,
		Now:      opts.Now,
	}
	a.Reputation = &services.ReputationService{
		Reviews:      repos.Reviews,
		Users:        repos.Users,
		Transactions: repos.Transactions,
		Now:          opts.Now,
	}
	a.Trips = &services.TripService{Trips: repos.Trips, Transactions: repos.Transactions, Ledger: a.Ledger, Now: opts.Now}
	a.Packages = &services.PackageService{Packages: repos.Packages, Now: opts.Now}
	a.Docs = services.DocsService{
		Transactions: repos.Transactions,
		Packages:     repos.Packages,
		Trips:        repos.Trips,
		Users:        repos.Users,
		Now:          opts.Now,
	}
	return a
}

// API exposes the services to the HTTP layer. ready may be nil.
func (a *App) API(ready func(ctx context.Context) error) *h.API {
	return &h.API{
		Trips:      a.Trips,
		Packages:   a.Packages,
		Escrow:     a.Escrow,
		Matching:   a.Matching,
		Reputation: a.Reputation,
		Docs:       a.Docs,
		Users:      a.Repos.Users,
		Ready:      ready,
	}
}
