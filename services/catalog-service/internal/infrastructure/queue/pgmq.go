package queue

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PGMQSender enqueues through the pgmq extension of the catalog database.
type PGMQSender struct {
	db *gorm.DB
}

func NewPGMQSender(db *gorm.DB) *PGMQSender {
	return &PGMQSender{db: db}
}

func (s *PGMQSender) Send(ctx context.Context, queueName string, message json.RawMessage) (string, error) {
	var id int64
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM pgmq.send(?, ?::jsonb)", queueName, string(message)).
		Scan(&id).Error
	if err != nil {
		return "", errors.Wrapf(err, "pgmq send %s", queueName)
	}
	return strconv.FormatInt(id, 10), nil
}
