package usecase

import (
	"context"
	"encoding/json"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/internal/domain"
	"knowhow/services/catalog-service/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ProcedureSend enqueues a message on a named work queue.
const ProcedureSend = "send"

type CollectionStore interface {
	Select(ctx context.Context, c *repository.Collection, q repository.Query) ([]json.RawMessage, int64, error)
	Insert(ctx context.Context, c *repository.Collection, record json.RawMessage, owner *uuid.UUID) (json.RawMessage, error)
	Delete(ctx context.Context, c *repository.Collection, filters []repository.Condition, owner *uuid.UUID) (int64, error)
}

type QueueSender interface {
	Send(ctx context.Context, queueName string, message json.RawMessage) (string, error)
}

type CollectionUseCase struct {
	store  CollectionStore
	sender QueueSender
	log    *logger.Logger
}

func NewCollectionUseCase(store CollectionStore, sender QueueSender, log *logger.Logger) *CollectionUseCase {
	return &CollectionUseCase{store: store, sender: sender, log: log.With("usecase", "collection")}
}

// Select applies row-level scoping: anonymous callers see nothing of user-scoped
// collections and users see only their own rows.
func (uc *CollectionUseCase) Select(ctx context.Context, p domain.Principal, name string, q repository.Query) ([]json.RawMessage, int64, error) {
	c, err := repository.Lookup(name)
	if err != nil {
		return nil, 0, err
	}
	q.Owner = nil
	if c.UserScoped {
		switch p.Role {
		case domain.RoleAnon:
			return []json.RawMessage{}, 0, nil
		case domain.RoleUser:
			id := p.UserID
			q.Owner = &id
		}
	}
	return uc.store.Select(ctx, c, q)
}

func (uc *CollectionUseCase) Insert(ctx context.Context, p domain.Principal, name string, record json.RawMessage) (json.RawMessage, error) {
	c, owner, err := uc.writable(p, name)
	if err != nil {
		return nil, err
	}
	out, err := uc.store.Insert(ctx, c, record, owner)
	if err != nil {
		return nil, err
	}
	uc.log.Debug("record inserted", "collection", name, "role", p.Role.String())
	return out, nil
}

func (uc *CollectionUseCase) Delete(ctx context.Context, p domain.Principal, name string, filters []repository.Condition) (int64, error) {
	c, owner, err := uc.writable(p, name)
	if err != nil {
		return 0, err
	}
	n, err := uc.store.Delete(ctx, c, filters, owner)
	if err != nil {
		return 0, err
	}
	uc.log.Debug("records deleted", "collection", name, "role", p.Role.String(), "count", n)
	return n, nil
}

type sendPayload struct {
	QueueName string          `json:"queue_name"`
	Message   json.RawMessage `json:"message"`
}

// Call runs a named procedure. Only the service role may call procedures.
func (uc *CollectionUseCase) Call(ctx context.Context, p domain.Principal, procedure string, payload json.RawMessage) (json.RawMessage, error) {
	if procedure != ProcedureSend {
		return nil, errors.Wrapf(domain.ErrUnknownProcedure, "%q", procedure)
	}
	if p.Role == domain.RoleAnon {
		return nil, domain.ErrUnauthenticated
	}
	if p.Role != domain.RoleService {
		return nil, domain.ErrForbidden
	}

	var in sendPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, errors.Wrap(domain.ErrInvalidPayload, err.Error())
	}
	if in.QueueName == "" || len(in.Message) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "queue_name and message are required")
	}
	id, err := uc.sender.Send(ctx, in.QueueName, in.Message)
	if err != nil {
		return nil, err
	}
	uc.log.Info("message queued", "queue", in.QueueName, "msg_id", id)
	return json.Marshal(map[string]string{"msg_id": id})
}

func (uc *CollectionUseCase) writable(p domain.Principal, name string) (*repository.Collection, *uuid.UUID, error) {
	c, err := repository.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	switch p.Role {
	case domain.RoleAnon:
		return nil, nil, domain.ErrUnauthenticated
	case domain.RoleService:
		return c, nil, nil
	}
	if c.Writer != repository.WriterOwner {
		return nil, nil, domain.ErrForbidden
	}
	id := p.UserID
	return c, &id, nil
}
