package push

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

var (
	_ queueRepo         = &queueRepoMock{}
	_ historyRepo       = &historyRepoMock{}
	_ preferenceRepo    = &preferenceRepoMock{}
	_ registryTransport = &registryTransportMock{}
	_ txManager         = &txManagerMock{}
)

type queueRepoMock struct {
	ListCandidatesFunc    func(ctx context.Context, f domain.QueueFilter) ([]domain.QueueRecord, error)
	IncrementAttemptsFunc func(ctx context.Context, id uuid.UUID) (domain.QueueRecord, error)
	DeleteIfUnchangedFunc func(ctx context.Context, id uuid.UUID, op domain.Operation) (bool, error)
	SetPutCodeFunc        func(ctx context.Context, id uuid.UUID, putCode *string) error
	RecordFailureFunc     func(ctx context.Context, id uuid.UUID, msg string) error

	mu    sync.Mutex
	calls struct {
		ListCandidates    []domain.QueueFilter
		IncrementAttempts []uuid.UUID
		DeleteIfUnchanged []struct {
			ID uuid.UUID
			Op domain.Operation
		}
		SetPutCode []struct {
			ID      uuid.UUID
			PutCode *string
		}
		RecordFailure []struct {
			ID  uuid.UUID
			Msg string
		}
	}
}

func (mock *queueRepoMock) ListCandidates(ctx context.Context, f domain.QueueFilter) ([]domain.QueueRecord, error) {
	if mock.ListCandidatesFunc == nil {
		panic("queueRepoMock.ListCandidatesFunc: method is nil but queueRepo.ListCandidates was just called")
	}
	mock.mu.Lock()
	mock.calls.ListCandidates = append(mock.calls.ListCandidates, f)
	mock.mu.Unlock()
	return mock.ListCandidatesFunc(ctx, f)
}

func (mock *queueRepoMock) IncrementAttempts(ctx context.Context, id uuid.UUID) (domain.QueueRecord, error) {
	if mock.IncrementAttemptsFunc == nil {
		panic("queueRepoMock.IncrementAttemptsFunc: method is nil but queueRepo.IncrementAttempts was just called")
	}
	mock.mu.Lock()
	mock.calls.IncrementAttempts = append(mock.calls.IncrementAttempts, id)
	mock.mu.Unlock()
	return mock.IncrementAttemptsFunc(ctx, id)
}

func (mock *queueRepoMock) DeleteIfUnchanged(ctx context.Context, id uuid.UUID, op domain.Operation) (bool, error) {
	mock.mu.Lock()
	mock.calls.DeleteIfUnchanged = append(mock.calls.DeleteIfUnchanged, struct {
		ID uuid.UUID
		Op domain.Operation
	}{id, op})
	mock.mu.Unlock()
	if mock.DeleteIfUnchangedFunc == nil {
		return true, nil
	}
	return mock.DeleteIfUnchangedFunc(ctx, id, op)
}

func (mock *queueRepoMock) SetPutCode(ctx context.Context, id uuid.UUID, putCode *string) error {
	mock.mu.Lock()
	mock.calls.SetPutCode = append(mock.calls.SetPutCode, struct {
		ID      uuid.UUID
		PutCode *string
	}{id, putCode})
	mock.mu.Unlock()
	if mock.SetPutCodeFunc == nil {
		return nil
	}
	return mock.SetPutCodeFunc(ctx, id, putCode)
}

func (mock *queueRepoMock) RecordFailure(ctx context.Context, id uuid.UUID, msg string) error {
	mock.mu.Lock()
	mock.calls.RecordFailure = append(mock.calls.RecordFailure, struct {
		ID  uuid.UUID
		Msg string
	}{id, msg})
	mock.mu.Unlock()
	if mock.RecordFailureFunc == nil {
		return nil
	}
	return mock.RecordFailureFunc(ctx, id, msg)
}

type historyRepoMock struct {
	AppendFunc func(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error)

	mu    sync.Mutex
	calls []domain.HistoryRecord
}

func (mock *historyRepoMock) Append(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error) {
	mock.mu.Lock()
	mock.calls = append(mock.calls, h)
	mock.mu.Unlock()
	if mock.AppendFunc == nil {
		h.ID = uuid.New()
		return h, nil
	}
	return mock.AppendFunc(ctx, h)
}

func (mock *historyRepoMock) AppendCalls() []domain.HistoryRecord {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls
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

type registryTransportMock struct {
	SynchronizeFunc func(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error)

	mu    sync.Mutex
	calls []domain.SyncRequest
}

func (mock *registryTransportMock) Synchronize(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	if mock.SynchronizeFunc == nil {
		panic("registryTransportMock.SynchronizeFunc: method is nil but registryTransport.Synchronize was just called")
	}
	mock.mu.Lock()
	mock.calls = append(mock.calls, req)
	mock.mu.Unlock()
	return mock.SynchronizeFunc(ctx, req)
}

func (mock *registryTransportMock) SynchronizeCalls() []domain.SyncRequest {
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
