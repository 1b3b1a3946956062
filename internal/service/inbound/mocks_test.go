package inbound

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

var (
	_ personReader     = &registryClientMock{}
	_ workLister       = &registryClientMock{}
	_ webhookRegistrar = &registryClientMock{}
	_ historyRepo      = &historyRepoMock{}
	_ queueRepo        = &queueRepoMock{}
	_ entityRepo       = &entityRepoMock{}
	_ changeConsumer   = &changeConsumerMock{}
	_ txManager        = &txManagerMock{}
)

type registryClientMock struct {
	PersonFunc          func(ctx context.Context, token, orcidID string) (orcid.Person, error)
	WorkPutCodesFunc    func(ctx context.Context, token, orcidID string) ([]string, error)
	RegisterWebhookFunc func(ctx context.Context, orcidID, callback string) error

	mu    sync.Mutex
	calls []string
}

func (mock *registryClientMock) record(name string) {
	mock.mu.Lock()
	mock.calls = append(mock.calls, name)
	mock.mu.Unlock()
}

func (mock *registryClientMock) Person(ctx context.Context, token, orcidID string) (orcid.Person, error) {
	if mock.PersonFunc == nil {
		panic("registryClientMock.PersonFunc: method is nil but Person was just called")
	}
	mock.record("Person")
	return mock.PersonFunc(ctx, token, orcidID)
}

func (mock *registryClientMock) WorkPutCodes(ctx context.Context, token, orcidID string) ([]string, error) {
	if mock.WorkPutCodesFunc == nil {
		panic("registryClientMock.WorkPutCodesFunc: method is nil but WorkPutCodes was just called")
	}
	mock.record("WorkPutCodes")
	return mock.WorkPutCodesFunc(ctx, token, orcidID)
}

func (mock *registryClientMock) RegisterWebhook(ctx context.Context, orcidID, callback string) error {
	if mock.RegisterWebhookFunc == nil {
		panic("registryClientMock.RegisterWebhookFunc: method is nil but RegisterWebhook was just called")
	}
	mock.record("RegisterWebhook")
	return mock.RegisterWebhookFunc(ctx, orcidID, callback)
}

func (mock *registryClientMock) Calls() []string {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls
}

type historyRepoMock struct {
	LatestByOwnerFunc func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error)
	AppendFunc        func(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error)

	mu      sync.Mutex
	appends []domain.HistoryRecord
}

func (mock *historyRepoMock) LatestByOwner(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
	if mock.LatestByOwnerFunc == nil {
		panic("historyRepoMock.LatestByOwnerFunc: method is nil but historyRepo.LatestByOwner was just called")
	}
	return mock.LatestByOwnerFunc(ctx, owner, rt)
}

func (mock *historyRepoMock) Append(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error) {
	mock.mu.Lock()
	mock.appends = append(mock.appends, h)
	mock.mu.Unlock()
	if mock.AppendFunc == nil {
		return h, nil
	}
	return mock.AppendFunc(ctx, h)
}

func (mock *historyRepoMock) AppendCalls() []domain.HistoryRecord {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.appends
}

type queueRepoMock struct {
	ClearPutCodeFunc func(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error)

	mu      sync.Mutex
	cleared []uuid.UUID
}

func (mock *queueRepoMock) ClearPutCode(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error) {
	mock.mu.Lock()
	mock.cleared = append(mock.cleared, entity)
	mock.mu.Unlock()
	if mock.ClearPutCodeFunc == nil {
		return false, nil
	}
	return mock.ClearPutCodeFunc(ctx, owner, entity, rt)
}

func (mock *queueRepoMock) ClearPutCodeCalls() []uuid.UUID {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.cleared
}

type entityRepoMock struct {
	GetFunc func(ctx context.Context, id uuid.UUID) (domain.Entity, error)
}

func (mock *entityRepoMock) Get(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	if mock.GetFunc == nil {
		panic("entityRepoMock.GetFunc: method is nil but entityRepo.Get was just called")
	}
	return mock.GetFunc(ctx, id)
}

type changeConsumerMock struct {
	mu    sync.Mutex
	calls [][]domain.Change
}

func (mock *changeConsumerMock) Consume(ctx context.Context, changes []domain.Change) error {
	mock.mu.Lock()
	mock.calls = append(mock.calls, changes)
	mock.mu.Unlock()
	return nil
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
