package sync

import (
	"time"

	"savesync/internal/app/client/conflict"
	"savesync/internal/app/client/network"
)

type OperationType string

const (
	OpUpload        OperationType = "upload"
	OpDownload      OperationType = "download"
	OpBidirectional OperationType = "bidirectional"
)

type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusInProgress OperationStatus = "in_progress"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
	StatusCancelled  OperationStatus = "cancelled"
)

// Terminal сообщает, что из статуса выйти уже нельзя.
func (s OperationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Operation - одна пачка работы внутри сессии.
type Operation struct {
	ID             string          `json:"id"`
	Type           OperationType   `json:"type"`
	Status         OperationStatus `json:"status"`
	TotalItems     int             `json:"total_items"`
	ProcessedItems int             `json:"processed_items"`
	Progress       int             `json:"progress"`
	Errors         []string        `json:"errors"`
	StartTime      time.Time       `json:"start_time"`
}

// transition меняет статус. Терминальный статус не меняется, а в in_progress
// можно попасть только из pending.
func (op *Operation) transition(to OperationStatus) bool {
	if op.Status.Terminal() {
		return false
	}
	if to == StatusInProgress && op.Status != StatusPending {
		return false
	}
	op.Status = to
	return true
}

func (op *Operation) advance() {
	op.ProcessedItems++
	if op.TotalItems > 0 {
		op.Progress = op.ProcessedItems * 100 / op.TotalItems
	}
}

func (op Operation) clone() Operation {
	op.Errors = append([]string(nil), op.Errors...)
	return op
}

// Session - одна попытка синхронизации от начала до конца.
type Session struct {
	ID                string                `json:"id"`
	StartTime         time.Time             `json:"start_time"`
	EndTime           *time.Time            `json:"end_time,omitempty"`
	Operations        []*Operation          `json:"operations"`
	TotalChanges      int                   `json:"total_changes"`
	SuccessfulChanges int                   `json:"successful_changes"`
	FailedChanges     int                   `json:"failed_changes"`
	Conflicts         []conflict.Resolution `json:"conflicts"`
	NetworkQuality    network.Quality       `json:"network_quality"`
}

// Cancelled сообщает, была ли сессия прервана.
func (s *Session) Cancelled() bool {
	for _, op := range s.Operations {
		if op.Status == StatusCancelled {
			return true
		}
	}
	return false
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Operations = make([]*Operation, len(s.Operations))
	for i, op := range s.Operations {
		c := op.clone()
		out.Operations[i] = &c
	}
	out.Conflicts = append([]conflict.Resolution(nil), s.Conflicts...)
	return &out
}

// Status - снимок состояния движка синхронизации.
type Status struct {
	Online            bool            `json:"online"`
	Connected         bool            `json:"connected"`
	Syncing           bool            `json:"syncing"`
	PendingChanges    int             `json:"pending_changes"`
	AbandonedChanges  int             `json:"abandoned_changes"`
	LastSyncTime      time.Time       `json:"last_sync_time"`
	NextSyncTime      time.Time       `json:"next_sync_time"`
	CurrentSession    *Session        `json:"current_session,omitempty"`
	NetworkQuality    network.Quality `json:"network_quality"`
	EstimatedDuration time.Duration   `json:"estimated_duration"`
}

// Observer получает события синхронизации. Методы вызываются вне внутренних блокировок.
type Observer interface {
	OnSyncStart(s *Session)
	OnSyncProgress(op Operation)
	OnSyncComplete(s *Session)
	OnError(msg string, err error)
	OnConnectivityChange(online, connected bool)
}

// NopObserver встраивается, когда нужны не все события.
type NopObserver struct{}

func (NopObserver) OnSyncStart(*Session) {}
func (NopObserver) OnSyncProgress(Operation) {}
func (NopObserver) OnSyncComplete(*Session) {}
func (NopObserver) OnError(string, error) {}
func (NopObserver) OnConnectivityChange(bool, bool) {}
