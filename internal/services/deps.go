package services

import (
	"context"

	"github.com/tutrabajo/apiserver/internal/store"
)

// RecordStore defines the persistence operations services rely on.
type RecordStore = store.Executor

// TxRecordStore is a RecordStore able to run a unit of work atomically. fn
// receives a RecordStore bound to the transaction.
type TxRecordStore interface {
	RecordStore
	InTx(ctx context.Context, fn func(tx RecordStore) error) error
}

// IDGenerator issues new entity ids.
type IDGenerator interface {
	GenerateID() (string, error)
}

// ContentCodec encrypts sensitive fields before they reach the store.
type ContentCodec interface {
	IDGenerator
	EncryptString(plaintext string) (string, error)
	DecryptString(encoded string) (string, error)
}

// Emitter publishes entity change notifications.
type Emitter interface {
	Emit(ctx context.Context, eventType, entityID string)
}

type discardEmitter struct{}

func (discardEmitter) Emit(context.Context, string, string) {}

func emitterOrDiscard(e Emitter) Emitter {
	if e == nil {
		return discardEmitter{}
	}
	return e
}
