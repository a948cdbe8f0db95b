package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/pkg/catalogpb"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Caller is the part of the catalog client the handler needs.
type Caller interface {
	Call(ctx context.Context, in *catalogpb.CallRequest, opts ...grpc.CallOption) (*catalogpb.CallResponse, error)
}

type QueueHandler struct {
	catalog    Caller
	serviceKey string
	queueName  string
	timeout    time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewQueueHandler(catalog Caller, serviceKey, queueName string, timeout time.Duration, log *logger.Logger) *QueueHandler {
	return &QueueHandler{
		catalog:    catalog,
		serviceKey: serviceKey,
		queueName:  queueName,
		timeout:    timeout,
		now:        time.Now,
		log:        log.With("handler", "queue"),
	}
}

type generationReq struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

type generationMessage struct {
	Prompt    string `json:"prompt"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// POST /functions/v1/queue-class-generation
func (h *QueueHandler) QueueClassGeneration(c *gin.Context) {
	var req generationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, err)
		return
	}

	message, err := json.Marshal(generationMessage{
		Prompt:    req.Prompt,
		UserID:    req.UserID,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	payload, err := json.Marshal(catalogpb.SendPayload{QueueName: h.queueName, Message: message})
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+h.serviceKey)

	res, err := h.catalog.Call(ctx, &catalogpb.CallRequest{Procedure: catalogpb.ProcedureSend, Payload: payload})
	if err != nil {
		h.fail(c, err)
		return
	}

	var result catalogpb.SendResult
	_ = json.Unmarshal(res.Result, &result)
	h.log.Info("Successfully queued class generation request", "queue", h.queueName, "msg_id", result.MessageID, "user_id", req.UserID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Generation request queued"})
}

func (h *QueueHandler) fail(c *gin.Context, err error) {
	msg := err.Error()
	if s, ok := status.FromError(err); ok {
		msg = s.Message()
	}
	h.log.Error("Error queueing class generation", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
