package detector

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

var (
	_ queueRepo      = &queueRepoMock{}
	_ historyRepo    = &historyRepoMock{}
	_ preferenceRepo = &preferenceRepoMock{}
)

type deleteCall struct {
	Owner, Entity uuid.UUID
	RecordType    domain.RecordType
	PutCode       *string
}

type queueRepoMock struct {
	EnqueueFunc           func(ctx context.Context, rec domain.QueueRecord) (bool, error)
	MarkDeleteFunc        func(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error
	MarkPendingDeleteFunc func(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error)

	mu    sync.Mutex
	calls struct {
		Enqueue           []domain.QueueRecord
		MarkDelete        []deleteCall
		MarkPendingDelete []deleteCall
	}
}

func (mock *queueRepoMock) Enqueue(ctx context.Context, rec domain.QueueRecord) (bool, error) {
	mock.mu.Lock()
	mock.calls.Enqueue = append(mock.calls.Enqueue, rec)
	mock.mu.Unlock()
	if mock.EnqueueFunc == nil {
		return true, nil
	}
	return mock.EnqueueFunc(ctx, rec)
}

func (mock *queueRepoMock) MarkDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error {
	mock.mu.Lock()
	mock.calls.MarkDelete = append(mock.calls.MarkDelete, deleteCall{owner, entity, rt, putCode})
	mock.mu.Unlock()
	if mock.MarkDeleteFunc == nil {
		return nil
	}
	return mock.MarkDeleteFunc(ctx, owner, entity, rt, putCode)
}

func (mock *queueRepoMock) MarkPendingDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error) {
	mock.mu.Lock()
	mock.calls.MarkPendingDelete = append(mock.calls.MarkPendingDelete, deleteCall{Owner: owner, Entity: entity, RecordType: rt})
	mock.mu.Unlock()
	if mock.MarkPendingDeleteFunc == nil {
		return false, nil
	}
	return mock.MarkPendingDeleteFunc(ctx, owner, entity, rt)
}

func (mock *queueRepoMock) EnqueueCalls() []domain.QueueRecord {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls.Enqueue
}

func (mock *queueRepoMock) MarkDeleteCalls() []deleteCall {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls.MarkDelete
}

func (mock *queueRepoMock) MarkPendingDeleteCalls() []deleteCall {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls.MarkPendingDelete
}

type historyRepoMock struct {
	LatestPutCodeFunc func(ctx context.Context, owner, entity uuid.UUID) (*string, error)
	LatestByOwnerFunc func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error)
}

func (mock *historyRepoMock) LatestPutCode(ctx context.Context, owner, entity uuid.UUID) (*string, error) {
	if mock.LatestPutCodeFunc == nil {
		panic("historyRepoMock.LatestPutCodeFunc: method is nil but historyRepo.LatestPutCode was just called")
	}
	return mock.LatestPutCodeFunc(ctx, owner, entity)
}

func (mock *historyRepoMock) LatestByOwner(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
	if mock.LatestByOwnerFunc == nil {
		panic("historyRepoMock.LatestByOwnerFunc: method is nil but historyRepo.LatestByOwner was just called")
	}
	return mock.LatestByOwnerFunc(ctx, owner, rt)
}

type preferenceRepoMock struct {
	GetPreferencesByOwnersFunc func(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]domain.Preferences, error)

	mu    sync.Mutex
	calls [][]uuid.UUID
}

func (mock *preferenceRepoMock) GetPreferencesByOwners(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]domain.Preferences, error) {
	if mock.GetPreferencesByOwnersFunc == nil {
		panic("preferenceRepoMock.GetPreferencesByOwnersFunc: method is nil but preferenceRepo.GetPreferencesByOwners was just called")
	}
	mock.mu.Lock()
	mock.calls = append(mock.calls, owners)
	mock.mu.Unlock()
	return mock.GetPreferencesByOwnersFunc(ctx, owners)
}

func (mock *preferenceRepoMock) GetPreferencesByOwnersCalls() [][]uuid.UUID {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls
}
