package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// Synchronize brings the registry in line with the current local state of
// req's entity. Payload problems are returned as *domain.ValidationError
// before any network call; failures to reach the registry as
// *domain.TransportError. A non-2xx answer is a result, not an error.
func (t *Transport) Synchronize(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	section, ok := orcid.SectionFor(req.RecordType)
	if !ok {
		return domain.SyncResult{}, domain.NewValidationError("record_type", "unsupported record type "+req.RecordType.String())
	}

	profile, err := t.owner(ctx, req)
	if err != nil {
		return domain.SyncResult{}, err
	}

	state, exists, err := t.current(ctx, profile, req)
	if err != nil {
		return domain.SyncResult{}, err
	}

	op, send := req.Operation.Resolve(req.PutCode, exists)
	if !send {
		t.log.DebugContext(ctx, "nothing to delete remotely",
			slog.String("entity_id", req.EntityID.String()),
			slog.String("record_type", req.RecordType.String()),
		)
		return domain.SyncResult{Operation: op}, nil
	}

	token := profile.Credential.AccessToken
	var resp orcid.Response
	switch op {
	case domain.OperationDelete:
		resp, err = t.client.Delete(ctx, token, profile.ORCID, section, *req.PutCode)
	case domain.OperationUpdate:
		var body any
		if body, err = state.payload(req.PutCode); err != nil {
			return domain.SyncResult{}, err
		}
		resp, err = t.client.Update(ctx, token, profile.ORCID, section, *req.PutCode, body)
	default:
		var body any
		if body, err = state.payload(nil); err != nil {
			return domain.SyncResult{}, err
		}
		resp, err = t.client.Create(ctx, token, profile.ORCID, section, body)
	}
	if err != nil {
		return domain.SyncResult{}, err
	}

	return toResult(op, req.PutCode, resp), nil
}

// owner loads the profile on whose behalf req is pushed and checks that it
// can be pushed at all.
func (t *Transport) owner(ctx context.Context, req domain.SyncRequest) (domain.Profile, error) {
	profile, err := t.profiles.Get(ctx, req.OwnerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{}, domain.NewValidationError("owner", "profile "+req.OwnerID.String()+" does not exist")
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load owner profile: %w", err)
	}

	if profile.ORCID == "" {
		return domain.Profile{}, domain.NewValidationError(domain.FieldORCID, "profile has no registry identifier")
	}
	if !profile.Linked() {
		return domain.Profile{}, fmt.Errorf("%w: %w", domain.ErrNotLinked,
			domain.NewValidationError("credential", "profile has not granted registry access"))
	}
	if profile.Credential.Expired(t.now()) {
		return domain.Profile{}, fmt.Errorf("%w: %w", domain.ErrNotLinked,
			domain.NewValidationError("credential", "registry access token expired"))
	}
	return profile, nil
}

// localState is the current local version of the pushed record.
type localState struct {
	entity domain.Entity
	field  domain.ProfileField
	rt     domain.RecordType
}

func (s localState) payload(putCode *string) (any, error) {
	switch s.rt {
	case domain.RecordTypePublication:
		return orcid.BuildWork(s.entity, putCode)
	case domain.RecordTypeProject:
		return orcid.BuildFunding(s.entity, putCode)
	}
	return orcid.BuildProfileField(s.field, putCode)
}

// current loads the state of the record req refers to. exists is false
// when it is gone locally.
func (t *Transport) current(ctx context.Context, profile domain.Profile, req domain.SyncRequest) (localState, bool, error) {
	state := localState{rt: req.RecordType}

	if req.RecordType.IsProfileField() {
		f, ok := domain.FindProfileField(profile.Entity, req.RecordType, req.EntityID)
		state.field = f
		return state, ok, nil
	}

	e, err := t.entities.Get(ctx, req.EntityID)
	if errors.Is(err, domain.ErrNotFound) {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("load entity: %w", err)
	}
	if rt, ok := e.RecordType(); !ok || rt != req.RecordType {
		return state, false, domain.NewValidationError("record_type",
			fmt.Sprintf("entity %s is a %s, not a %s", e.ID, e.Type, req.RecordType))
	}
	state.entity = e
	return state, true, nil
}

// toResult maps a registry answer to the ledger's view of it. Rejected
// calls keep the put code that was sent; an accepted delete clears it.
func toResult(op domain.Operation, sent *string, resp orcid.Response) domain.SyncResult {
	res := domain.SyncResult{
		Operation:     op,
		Transmitted:   true,
		Status:        resp.Status,
		Message:       resp.Message,
		PayloadDigest: resp.Digest,
	}

	switch {
	case !resp.OK():
		if op != domain.OperationInsert {
			res.PutCode = sent
		}
	case op == domain.OperationDelete:
		res.PutCode = nil
	case resp.PutCode != "":
		pc := resp.PutCode
		res.PutCode = &pc
	case op == domain.OperationUpdate:
		res.PutCode = sent
	}
	return res
}
