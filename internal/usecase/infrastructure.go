package usecase

import "context"

type MessageProducer interface {
	WriteMessage(ctx context.Context, req *WriteMessageReq) error
}

// IdempotencyStore хранит ключи идемпотентности оформления заказа.
type IdempotencyStore interface {
	// TryLock захватывает ключ на время обработки запроса. false — ключ уже занят.
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
	Remember(ctx context.Context, key string, orderID int64) error
	// Recall возвращает id заказа, созданного по ключу ранее.
	Recall(ctx context.Context, key string) (int64, bool, error)
}
