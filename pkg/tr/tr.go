// Package tr связывает пул pgx с менеджером транзакций avito-tech/go-transaction-manager.
// Репозитории получают текущую транзакцию из контекста, use case'ы открывают её через Manager.
package tr

import (
	"context"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
)

// Manager выполняет fn в транзакции. Вложенные вызовы присоединяются к внешней транзакции.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Querier — общий интерфейс pgx.Tx и *pgxpool.Pool.
type Querier = trmpgx.Tr

// NewManager создаёт менеджер транзакций поверх пула.
func NewManager(db trmpgx.Transactional) *manager.Manager {
	return manager.Must(trmpgx.NewDefaultFactory(db))
}

// Getter возвращает транзакцию из контекста, а при её отсутствии — сам пул.
type Getter struct {
	db     Querier
	getter *trmpgx.CtxGetter
}

func NewGetter(db Querier) *Getter {
	return &Getter{db: db, getter: trmpgx.DefaultCtxGetter}
}

// FromCtx извлекает объект транзакции из контекста или отдаёт пул.
func (g *Getter) FromCtx(ctx context.Context) Querier {
	return g.getter.DefaultTrOrDB(ctx, g.db)
}
