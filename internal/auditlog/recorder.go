package auditlog

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

type requestInfoKey struct{}

// RequestInfo is the client fingerprint captured by the HTTP layer.
type RequestInfo struct {
	UserAgent string
	IPAddress string
}

// WithRequestInfo attaches the caller's user agent and address to ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func requestInfoFrom(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// Entry describes one audited action.
type Entry struct {
	UserID   *uuid.UUID
	Action   enums.AuditAction
	Err      error
	Metadata map[string]any
}

// Success builds an entry for a completed action.
func Success(userID uuid.UUID, action enums.AuditAction, metadata map[string]any) Entry {
	return Entry{UserID: optionalID(userID), Action: action, Metadata: metadata}
}

// Failure builds an entry for an action that returned err.
func Failure(userID uuid.UUID, action enums.AuditAction, err error, metadata map[string]any) Entry {
	return Entry{UserID: optionalID(userID), Action: action, Err: err, Metadata: metadata}
}

// Outcome picks Success or Failure based on err.
func Outcome(userID uuid.UUID, action enums.AuditAction, err error, metadata map[string]any) Entry {
	if err != nil {
		return Failure(userID, action, err, metadata)
	}
	return Success(userID, action, metadata)
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Writer is what domain services depend on.
type Writer interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder writes audit rows. Failures are logged and never returned.
type Recorder struct {
	repo *Repository
	logg *logger.Logger
}

func NewRecorder(repo *Repository, logg *logger.Logger) *Recorder {
	return &Recorder{repo: repo, logg: logg}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.repo == nil {
		return
	}
	row, err := buildRow(ctx, entry)
	if err == nil {
		err = r.repo.Create(context.WithoutCancel(ctx), &row)
	}
	if err != nil && r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"audit_action": string(entry.Action),
			"error":        err.Error(),
		})
		r.logg.Warn(logCtx, "audit log write failed")
	}
}

func buildRow(ctx context.Context, entry Entry) (models.AuditLog, error) {
	row := models.AuditLog{
		UserID:     entry.UserID,
		ActionType: entry.Action,
		Status:     enums.AuditStatusSuccess,
	}
	if entry.Err != nil {
		row.Status = enums.AuditStatusFailure
		msg := entry.Err.Error()
		row.ErrorMessage = &msg
	}

	info := requestInfoFrom(ctx)
	if ua := strings.TrimSpace(info.UserAgent); ua != "" {
		row.DeviceInfo = &ua
	}
	if ip := strings.TrimSpace(info.IPAddress); ip != "" {
		row.IPAddress = &ip
	}

	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return models.AuditLog{}, err
		}
		row.Metadata = raw
	}
	return row, nil
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
