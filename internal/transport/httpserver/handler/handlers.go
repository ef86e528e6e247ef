package handler

import (
	"context"
	"net/http"
	"time"

	"splitledger/internal/domain/balances"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/ledger"
	"splitledger/internal/domain/user"
	"splitledger/pkg/logger"
)

type TokenIssuer interface {
	Issue(userID, email string) (string, time.Time, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Users    *user.Service
	Groups   *group.Service
	Ledger   *ledger.Service
	Balances *balances.Service
	tokens   TokenIssuer
	store    Pinger
	log      logger.Logger
}

func New(users *user.Service, groups *group.Service, ledgers *ledger.Service, balanceSvc *balances.Service, tokens TokenIssuer, store Pinger, log logger.Logger) *Handlers {
	return &Handlers{
		Users:    users,
		Groups:   groups,
		Ledger:   ledgers,
		Balances: balanceSvc,
		tokens:   tokens,
		store:    store,
		log:      log,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.log.InternalError("health: store unreachable", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
