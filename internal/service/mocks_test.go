package service_test

import (
	"context"
	"errors"

	"codearena.app/arbiter/internal/model"
)

var errNotStubbed = errors.New("not stubbed")

// fakeStateStore implements store.StateStore with function fields; unset
// methods fail loudly so a test only stubs what it exercises.
type fakeStateStore struct {
	getFn    func(ctx context.Context, submissionID int64) (*model.StateRecord, error)
	upsertFn func(ctx context.Context, rec *model.StateRecord) error
	listFn   func(ctx context.Context, state model.SubmissionState, limit int) ([]model.StateRecord, error)
}

func (f *fakeStateStore) Get(ctx context.Context, submissionID int64) (*model.StateRecord, error) {
	if f.getFn == nil {
		return nil, errNotStubbed
	}
	return f.getFn(ctx, submissionID)
}

func (f *fakeStateStore) Upsert(ctx context.Context, rec *model.StateRecord) error {
	if f.upsertFn == nil {
		return errNotStubbed
	}
	return f.upsertFn(ctx, rec)
}

func (f *fakeStateStore) ListByState(ctx context.Context, state model.SubmissionState, limit int) ([]model.StateRecord, error) {
	if f.listFn == nil {
		return nil, errNotStubbed
	}
	return f.listFn(ctx, state, limit)
}
