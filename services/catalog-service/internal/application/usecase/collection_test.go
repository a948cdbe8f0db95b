package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/internal/domain"
	"knowhow/services/catalog-service/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	selects []repository.Query
	owners  []*uuid.UUID
}

func (f *fakeStore) Select(_ context.Context, _ *repository.Collection, q repository.Query) ([]json.RawMessage, int64, error) {
	f.selects = append(f.selects, q)
	return []json.RawMessage{json.RawMessage(`{}`)}, 1, nil
}

func (f *fakeStore) Insert(_ context.Context, _ *repository.Collection, record json.RawMessage, owner *uuid.UUID) (json.RawMessage, error) {
	f.owners = append(f.owners, owner)
	return record, nil
}

func (f *fakeStore) Delete(_ context.Context, _ *repository.Collection, _ []repository.Condition, owner *uuid.UUID) (int64, error) {
	f.owners = append(f.owners, owner)
	return 1, nil
}

type fakeSender struct {
	queue   string
	message json.RawMessage
}

func (f *fakeSender) Send(_ context.Context, queueName string, message json.RawMessage) (string, error) {
	f.queue, f.message = queueName, message
	return "42", nil
}

func TestSelect_AnonymousSeesNoUserScopedRows(t *testing.T) {
	store := &fakeStore{}
	uc := NewCollectionUseCase(store, &fakeSender{}, logger.Nop())

	records, count, err := uc.Select(context.Background(), domain.Anonymous(), "saved_course", repository.Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, count)
	assert.Empty(t, store.selects)
}

func TestSelect_UserIsScopedToOwnRows(t *testing.T) {
	store := &fakeStore{}
	uc := NewCollectionUseCase(store, &fakeSender{}, logger.Nop())
	user := uuid.New()

	_, _, err := uc.Select(context.Background(), domain.User(user), "course_completed", repository.Query{})
	require.NoError(t, err)
	require.Len(t, store.selects, 1)
	require.NotNil(t, store.selects[0].Owner)
	assert.Equal(t, user, *store.selects[0].Owner)

	_, _, err = uc.Select(context.Background(), domain.User(user), "course", repository.Query{})
	require.NoError(t, err)
	assert.Nil(t, store.selects[1].Owner)
}

func TestWrites_Authorization(t *testing.T) {
	store := &fakeStore{}
	uc := NewCollectionUseCase(store, &fakeSender{}, logger.Nop())
	ctx := context.Background()
	user := uuid.New()

	_, err := uc.Insert(ctx, domain.Anonymous(), "saved_course", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = uc.Insert(ctx, domain.User(user), "course", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Delete(ctx, domain.User(user), "profiles", nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Insert(ctx, domain.User(user), "saved_course", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = uc.Insert(ctx, domain.ServiceRole(), "course", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.Len(t, store.owners, 2)
	assert.Equal(t, user, *store.owners[0])
	assert.Nil(t, store.owners[1])
}

func TestCall_Send(t *testing.T) {
	sender := &fakeSender{}
	uc := NewCollectionUseCase(&fakeStore{}, sender, logger.Nop())
	ctx := context.Background()
	payload := json.RawMessage(`{"queue_name":"course_generator_queue","message":{"prompt":"Go"}}`)

	_, err := uc.Call(ctx, domain.User(uuid.New()), ProcedureSend, payload)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Call(ctx, domain.ServiceRole(), "drop_everything", payload)
	assert.ErrorIs(t, err, domain.ErrUnknownProcedure)

	_, err = uc.Call(ctx, domain.ServiceRole(), ProcedureSend, json.RawMessage(`{"queue_name":""}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	out, err := uc.Call(ctx, domain.ServiceRole(), ProcedureSend, payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg_id":"42"}`, string(out))
	assert.Equal(t, "course_generator_queue", sender.queue)
	assert.JSONEq(t, `{"prompt":"Go"}`, string(sender.message))
}
