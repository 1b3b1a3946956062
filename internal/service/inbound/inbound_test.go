package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const testORCID = "0000-0002-1825-0097"

func ptr(s string) *string { return &s }

func defaultTxMock() *txManagerMock {
	return &txManagerMock{
		RunInTxFunc: func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	}
}

func linked(md domain.Metadata) *domain.Profile {
	if md == nil {
		md = domain.Metadata{}
	}
	md.Set(domain.FieldORCID, testORCID)
	p := domain.NewProfile(
		domain.Entity{ID: uuid.New(), Type: domain.EntityTypePerson, Metadata: md},
		&domain.Credential{AccessToken: "tok"},
	)
	return &p
}

// publishing returns a linked profile that synchronizes publications.
func publishing() *domain.Profile {
	md := domain.Metadata{}
	md.Set(domain.FieldSyncPublications, string(domain.SyncBatch))
	return linked(md)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

type namedAction string

func (a namedAction) Name() string { return string(a) }

func (a namedAction) Apply(context.Context, *domain.Profile, string) error { return nil }

func TestNewRegistry_KeepsConfiguredOrder(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(
		[]string{"webhook", "person-import"},
		namedAction("person-import"), namedAction("works-reconcile"), namedAction("webhook"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Names(); !slices.Equal(got, []string{"webhook", "person-import"}) {
		t.Errorf("names: got %v", got)
	}
	if len(r.Actions()) != 2 {
		t.Errorf("actions: got %d, want 2", len(r.Actions()))
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry([]string{"nope"}, namedAction("webhook")); err == nil {
		t.Error("unknown action should be rejected")
	}
	if _, err := NewRegistry([]string{"webhook", "webhook"}, namedAction("webhook")); err == nil {
		t.Error("duplicate action should be rejected")
	}
}

// ---------------------------------------------------------------------------
// person-import
// ---------------------------------------------------------------------------

func TestPersonImport_FillsOnlyEmptyFields(t *testing.T) {
	t.Parallel()

	md := domain.Metadata{}
	md.Set(domain.FieldGivenName, "Local")
	p := linked(md)
	client := &registryClientMock{PersonFunc: func(ctx context.Context, token, orcidID string) (orcid.Person, error) {
		if token != "tok" || orcidID != testORCID {
			t.Errorf("call: token %q orcid %q", token, orcidID)
		}
		return orcid.Person{GivenNames: "Remote", FamilyName: "Carberry", Biography: "Psychoceramics"}, nil
	}}

	if err := NewPersonImport(slog.Default(), client).Apply(context.Background(), p, testORCID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.Metadata.First(domain.FieldGivenName); got != "Local" {
		t.Errorf("given name: got %q, want Local", got)
	}
	if got := p.Metadata.First(domain.FieldFamilyName); got != "Carberry" {
		t.Errorf("family name: got %q", got)
	}
	if got := p.Metadata.First(domain.FieldBiography); got != "Psychoceramics" {
		t.Errorf("biography: got %q", got)
	}
}

func TestPersonImport_CompleteProfileNeedsNoCall(t *testing.T) {
	t.Parallel()

	md := domain.Metadata{}
	md.Set(domain.FieldGivenName, "A")
	md.Set(domain.FieldFamilyName, "B")
	md.Set(domain.FieldBiography, "C")
	client := &registryClientMock{}

	if err := NewPersonImport(slog.Default(), client).Apply(context.Background(), linked(md), testORCID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Errorf("calls: got %v, want none", client.Calls())
	}
}

func TestPersonImport_Error(t *testing.T) {
	t.Parallel()

	client := &registryClientMock{PersonFunc: func(ctx context.Context, token, orcidID string) (orcid.Person, error) {
		return orcid.Person{}, &domain.TransportError{Op: "GET", StatusCode: 500}
	}}

	err := NewPersonImport(slog.Default(), client).Apply(context.Background(), linked(nil), testORCID)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("error: got %v, want transport error", err)
	}
}

// ---------------------------------------------------------------------------
// webhook
// ---------------------------------------------------------------------------

func TestWebhook_RegistersOnce(t *testing.T) {
	t.Parallel()

	var callbacks []string
	client := &registryClientMock{RegisterWebhookFunc: func(ctx context.Context, orcidID, callback string) error {
		callbacks = append(callbacks, callback)
		return nil
	}}
	action := NewWebhook(slog.Default(), client, "https://cris.example.org/hook")
	p := linked(nil)

	for range 2 {
		if err := action.Apply(context.Background(), p, testORCID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(callbacks) != 1 || callbacks[0] != "https://cris.example.org/hook" {
		t.Errorf("registrations: got %v", callbacks)
	}
	if got := p.Metadata.First(domain.FieldWebhookRegistered); got != "true" {
		t.Errorf("flag: got %q, want true", got)
	}
	if action.Name() != config.ActionWebhook {
		t.Errorf("name: got %q", action.Name())
	}
}

func TestWebhook_FailureLeavesFlagUnset(t *testing.T) {
	t.Parallel()

	client := &registryClientMock{RegisterWebhookFunc: func(ctx context.Context, orcidID, callback string) error {
		return errors.New("forbidden")
	}}
	p := linked(nil)

	if err := NewWebhook(slog.Default(), client, "https://x").Apply(context.Background(), p, testORCID); err == nil {
		t.Fatal("expected error")
	}
	if p.Metadata.First(domain.FieldWebhookRegistered) != "" {
		t.Error("flag must not be set after a failed registration")
	}
}

// ---------------------------------------------------------------------------
// works-reconcile
// ---------------------------------------------------------------------------

func TestWorksReconcile_RequeuesVanishedWorks(t *testing.T) {
	t.Parallel()

	p := publishing()
	present, vanished, deletedLocally := uuid.New(), uuid.New(), uuid.New()

	h := &historyRepoMock{LatestByOwnerFunc: func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
		if rt != domain.RecordTypePublication {
			t.Errorf("record type: got %s", rt)
		}
		return []domain.HistoryRecord{
			{OwnerID: owner, EntityID: present, RecordType: rt, PutCode: ptr("1")},
			{OwnerID: owner, EntityID: vanished, RecordType: rt, PutCode: ptr("2")},
			{OwnerID: owner, EntityID: deletedLocally, RecordType: rt, PutCode: ptr("3")},
			{OwnerID: owner, EntityID: uuid.New(), RecordType: rt, Status: 400},
		}, nil
	}}
	client := &registryClientMock{WorkPutCodesFunc: func(ctx context.Context, token, orcidID string) ([]string, error) {
		return []string{"1", "99"}, nil
	}}
	entities := &entityRepoMock{GetFunc: func(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
		if id == deletedLocally {
			return domain.Entity{}, domain.ErrNotFound
		}
		return domain.Entity{ID: id, Type: domain.EntityTypePublication}, nil
	}}
	detector := &changeConsumerMock{}
	queue := &queueRepoMock{}

	action := NewWorksReconcile(slog.Default(), client, h, queue, entities, detector, defaultTxMock())
	if err := action.Apply(context.Background(), p, testORCID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cleared := queue.ClearPutCodeCalls()
	if len(cleared) != 2 || cleared[0] != vanished || cleared[1] != deletedLocally {
		t.Errorf("ClearPutCode calls: got %v, want [%s %s]", cleared, vanished, deletedLocally)
	}

	appends := h.AppendCalls()
	if len(appends) != 2 {
		t.Fatalf("Append calls: got %d, want 2", len(appends))
	}
	for _, a := range appends {
		if a.Status != 404 || a.PutCode != nil || a.Message != vanishedMessage {
			t.Errorf("ledger row: got %+v", a)
		}
	}

	consumed := detector.ConsumeCalls()
	if len(consumed) != 1 || consumed[0][0].Entity.ID != vanished || consumed[0][0].Kind != domain.ChangeModified {
		t.Errorf("Consume calls: got %+v", consumed)
	}
}

func TestWorksReconcile_NothingSyncedSkipsRegistry(t *testing.T) {
	t.Parallel()

	h := &historyRepoMock{LatestByOwnerFunc: func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
		return nil, nil
	}}
	client := &registryClientMock{}

	action := NewWorksReconcile(slog.Default(), client, h, &queueRepoMock{}, &entityRepoMock{}, &changeConsumerMock{}, defaultTxMock())
	if err := action.Apply(context.Background(), publishing(), testORCID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Errorf("calls: got %v, want none", client.Calls())
	}
}

func TestWorksReconcile_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	first, second := uuid.New(), uuid.New()
	h := &historyRepoMock{
		LatestByOwnerFunc: func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
			return []domain.HistoryRecord{
				{EntityID: first, PutCode: ptr("1")},
				{EntityID: second, PutCode: ptr("2")},
			}, nil
		},
	}
	client := &registryClientMock{WorkPutCodesFunc: func(ctx context.Context, token, orcidID string) ([]string, error) {
		return nil, nil
	}}
	dbErr := errors.New("db down")
	entities := &entityRepoMock{GetFunc: func(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
		if id == first {
			return domain.Entity{}, dbErr
		}
		return domain.Entity{ID: id, Type: domain.EntityTypePublication}, nil
	}}
	detector := &changeConsumerMock{}

	err := NewWorksReconcile(slog.Default(), client, h, &queueRepoMock{}, entities, detector, defaultTxMock()).
		Apply(context.Background(), publishing(), testORCID)
	if !errors.Is(err, dbErr) {
		t.Fatalf("error: got %v, want %v", err, dbErr)
	}
	if len(detector.ConsumeCalls()) != 1 {
		t.Errorf("second publication should still be requeued")
	}
}

func TestWorksReconcile_ClearPutCodeFailureSkipsRequeue(t *testing.T) {
	t.Parallel()

	entity := uuid.New()
	h := &historyRepoMock{LatestByOwnerFunc: func(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
		return []domain.HistoryRecord{{OwnerID: owner, EntityID: entity, RecordType: rt, PutCode: ptr("77")}}, nil
	}}
	client := &registryClientMock{WorkPutCodesFunc: func(ctx context.Context, token, orcidID string) ([]string, error) {
		return nil, nil
	}}
	dbErr := errors.New("queue locked")
	queue := &queueRepoMock{ClearPutCodeFunc: func(ctx context.Context, owner, e uuid.UUID, rt domain.RecordType) (bool, error) {
		return false, dbErr
	}}
	detector := &changeConsumerMock{}

	err := NewWorksReconcile(slog.Default(), client, h, queue, &entityRepoMock{}, detector, defaultTxMock()).
		Apply(context.Background(), publishing(), testORCID)
	if !errors.Is(err, dbErr) {
		t.Fatalf("error: got %v, want %v", err, dbErr)
	}
	if len(detector.ConsumeCalls()) != 0 {
		t.Errorf("publication should not be requeued when its put code cannot be cleared")
	}
}

func TestWorksReconcile_DisabledPublicationsSkipRegistry(t *testing.T) {
	t.Parallel()

	client := &registryClientMock{}
	action := NewWorksReconcile(slog.Default(), client, &historyRepoMock{}, &queueRepoMock{}, &entityRepoMock{}, &changeConsumerMock{}, defaultTxMock())
	if err := action.Apply(context.Background(), linked(nil), testORCID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Errorf("calls: got %v, want none", client.Calls())
	}
}
