package content

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

var (
	_ entityRepo     = &entityRepoMock{}
	_ changeConsumer = &changeConsumerMock{}
	_ txManager      = &txManagerMock{}
)

type entityRepoMock struct {
	GetFunc    func(ctx context.Context, id uuid.UUID) (domain.Entity, error)
	CreateFunc func(ctx context.Context, e domain.Entity) (domain.Entity, error)
	UpdateFunc func(ctx context.Context, e domain.Entity) (domain.Entity, error)
	DeleteFunc func(ctx context.Context, id uuid.UUID) (domain.Entity, error)
}

func (mock *entityRepoMock) Get(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	if mock.GetFunc == nil {
		panic("entityRepoMock.GetFunc: method is nil but entityRepo.Get was just called")
	}
	return mock.GetFunc(ctx, id)
}

func (mock *entityRepoMock) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if mock.CreateFunc == nil {
		panic("entityRepoMock.CreateFunc: method is nil but entityRepo.Create was just called")
	}
	return mock.CreateFunc(ctx, e)
}

func (mock *entityRepoMock) Update(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if mock.UpdateFunc == nil {
		panic("entityRepoMock.UpdateFunc: method is nil but entityRepo.Update was just called")
	}
	return mock.UpdateFunc(ctx, e)
}

func (mock *entityRepoMock) Delete(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	if mock.DeleteFunc == nil {
		panic("entityRepoMock.DeleteFunc: method is nil but entityRepo.Delete was just called")
	}
	return mock.DeleteFunc(ctx, id)
}

type changeConsumerMock struct {
	ConsumeFunc func(ctx context.Context, changes []domain.Change) error

	mu    sync.Mutex
	calls [][]domain.Change
}

func (mock *changeConsumerMock) Consume(ctx context.Context, changes []domain.Change) error {
	mock.mu.Lock()
	mock.calls = append(mock.calls, changes)
	mock.mu.Unlock()
	if mock.ConsumeFunc == nil {
		return nil
	}
	return mock.ConsumeFunc(ctx, changes)
}

func (mock *changeConsumerMock) ConsumeCalls() [][]domain.Change {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls
}

type txManagerMock struct {
	RunInTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (mock *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mock.RunInTxFunc == nil {
		panic("txManagerMock.RunInTxFunc: method is nil but txManager.RunInTx was just called")
	}
	return mock.RunInTxFunc(ctx, fn)
}

func defaultTxMock() *txManagerMock {
	return &txManagerMock{
		RunInTxFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}
