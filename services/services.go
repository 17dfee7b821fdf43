// Package services implements the task marketplace: the task catalog, the
// assignment state machine, wallets and their ledger.
package services

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/notify"
)

type Options struct {
	// TxRetries bounds attempts of a transaction that hit a lock conflict.
	TxRetries      int
	FeedPageSize   int
	SimulatedSlots int
	MinWithdrawal  decimal.Decimal
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TxRetries <= 0 {
		o.TxRetries = 3
	}
	if o.FeedPageSize <= 0 {
		o.FeedPageSize = 50
	}
	if o.SimulatedSlots <= 0 {
		o.SimulatedSlots = 100
	}
	if !o.MinWithdrawal.IsPositive() {
		o.MinWithdrawal = decimal.NewFromInt(10)
	}
	if o.Now == nil {
		o.Now = utcNow
	}
	return o
}

// Services wires every component over one database handle.
type Services struct {
	Activity *ActivityLog
	Ledger   *Ledger
	Catalog  *Catalog
	Authz    *Authorizer
	Engine   *Engine
	Users    *Users
	Plans    *Plans
	Wallets  *Wallets
}

func New(db *gorm.DB, notifier notify.Notifier, log *zap.Logger, opts Options) *Services {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	activity := NewActivityLog(db, opts)
	ledger := NewLedger(db, opts.TxRetries)
	catalog := NewCatalog(db, activity, opts)
	authz := NewAuthorizer(db)
	return &Services{
		Activity: activity,
		Ledger:   ledger,
		Catalog:  catalog,
		Authz:    authz,
		Engine:   NewEngine(db, ledger, activity, authz, notifier, log, opts),
		Users:    NewUsers(db, ledger, opts),
		Plans:    NewPlans(db, ledger, notifier, log, opts),
		Wallets:  NewWallets(db, ledger, notifier, log, opts),
	}
}
