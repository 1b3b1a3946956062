package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

var (
	_ profileRepo = &profileRepoMock{}
	_ entityRepo  = &entityRepoMock{}
	_ orcidClient = &orcidClientMock{}
)

type profileRepoMock struct {
	GetFunc func(ctx context.Context, id uuid.UUID) (domain.Profile, error)
}

func (mock *profileRepoMock) Get(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	if mock.GetFunc == nil {
		panic("profileRepoMock.GetFunc: method is nil but profileRepo.Get was just called")
	}
	return mock.GetFunc(ctx, id)
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

type clientCall struct {
	Method  string
	Token   string
	ORCID   string
	Section orcid.Section
	PutCode string
	Body    any
}

type orcidClientMock struct {
	CreateFunc func(ctx context.Context, token, orcidID string, s orcid.Section, body any) (orcid.Response, error)
	UpdateFunc func(ctx context.Context, token, orcidID string, s orcid.Section, putCode string, body any) (orcid.Response, error)
	DeleteFunc func(ctx context.Context, token, orcidID string, s orcid.Section, putCode string) (orcid.Response, error)

	mu    sync.Mutex
	calls []clientCall
}

func (mock *orcidClientMock) record(c clientCall) {
	mock.mu.Lock()
	mock.calls = append(mock.calls, c)
	mock.mu.Unlock()
}

func (mock *orcidClientMock) Create(ctx context.Context, token, orcidID string, s orcid.Section, body any) (orcid.Response, error) {
	if mock.CreateFunc == nil {
		panic("orcidClientMock.CreateFunc: method is nil but orcidClient.Create was just called")
	}
	mock.record(clientCall{Method: "POST", Token: token, ORCID: orcidID, Section: s, Body: body})
	return mock.CreateFunc(ctx, token, orcidID, s, body)
}

func (mock *orcidClientMock) Update(ctx context.Context, token, orcidID string, s orcid.Section, putCode string, body any) (orcid.Response, error) {
	if mock.UpdateFunc == nil {
		panic("orcidClientMock.UpdateFunc: method is nil but orcidClient.Update was just called")
	}
	mock.record(clientCall{Method: "PUT", Token: token, ORCID: orcidID, Section: s, PutCode: putCode, Body: body})
	return mock.UpdateFunc(ctx, token, orcidID, s, putCode, body)
}

func (mock *orcidClientMock) Delete(ctx context.Context, token, orcidID string, s orcid.Section, putCode string) (orcid.Response, error) {
	if mock.DeleteFunc == nil {
		panic("orcidClientMock.DeleteFunc: method is nil but orcidClient.Delete was just called")
	}
	mock.record(clientCall{Method: "DELETE", Token: token, ORCID: orcidID, Section: s, PutCode: putCode})
	return mock.DeleteFunc(ctx, token, orcidID, s, putCode)
}

func (mock *orcidClientMock) Calls() []clientCall {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]clientCall(nil), mock.calls...)
}
