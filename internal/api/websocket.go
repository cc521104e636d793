package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/models"
)

// WebSocket message types for the job progress protocol
const (
	// Client -> Server messages
	MsgTypeWatchJob = "job:watch"
	MsgTypePing     = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeAck       = "ack"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WatchInterval is how often a watched job is re-polled for progress.
const WatchInterval = 200 * time.Millisecond

// WSMessage is the framing shared by every message in both directions
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Watch request payload
type WatchJobPayload struct {
	JobID string `json:"jobId"`
}

// Job progress payload
type JobProgressPayload struct {
	JobID    string           `json:"jobId"`
	Status   models.JobStatus `json:"status"`
	Progress float64          `json:"progress"`
	Stage    string           `json:"stage,omitempty"`
}

// Job completion payload
type JobCompletePayload struct {
	Job *models.ExportJob `json:"job"`
}

// WebSocket error payload
type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JobSocketHandler streams export job progress over WebSocket
type JobSocketHandler struct {
	jobs     JobRunner
	upgrader websocket.Upgrader
}

// NewJobSocketHandler creates a new job progress socket handler
func NewJobSocketHandler(jobs JobRunner) *JobSocketHandler {
	return &JobSocketHandler{
		jobs: jobs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// jobSocket serializes writes; watch goroutines push progress frames while
// the read loop answers pings on the same connection.
type jobSocket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *jobSocket) send(msg WSMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// HandleWebSocket upgrades the connection and serves the job progress protocol
func (h *JobSocketHandler) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Println("[JobSocket] Client connected")

	sock := &jobSocket{conn: conn}
	done := make(chan struct{})
	defer close(done)

	// Send welcome message
	h.sendMessage(sock, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[JobSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			// Respond with pong to keep connection alive
			h.sendMessage(sock, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeWatchJob:
			h.handleWatch(sock, msg, done)
		default:
			h.sendError(sock, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Println("[JobSocket] Client disconnected")
	return nil
}

// handleWatch acks the request and starts pushing progress for one job
func (h *JobSocketHandler) handleWatch(sock *jobSocket, msg WSMessage, done <-chan struct{}) {
	var payload WatchJobPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(sock, "Invalid watch payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	if _, ok := h.jobs.GetJob(payload.JobID); !ok {
		h.sendError(sock, "Job not found: "+payload.JobID, "JOB_NOT_FOUND")
		return
	}

	// Send acknowledgment
	h.sendMessage(sock, WSMessage{
		Type:      MsgTypeAck,
		ID:        payload.JobID,
		Timestamp: time.Now().UnixMilli(),
	})

	go h.watchJob(sock, payload.JobID, done)
}

// watchJob polls the job until it reaches a terminal status, pushing a
// progress frame on every change and a final complete frame with the full
// job record
func (h *JobSocketHandler) watchJob(sock *jobSocket, jobID string, done <-chan struct{}) {
	ticker := time.NewTicker(WatchInterval)
	defer ticker.Stop()

	lastProgress := -1.0

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			job, ok := h.jobs.GetJob(jobID)
			if !ok {
				h.sendError(sock, "Job not found: "+jobID, "JOB_NOT_FOUND")
				return
			}

			if job.Status == models.JobStatusComplete || job.Status == models.JobStatusError {
				sock.send(WSMessage{
					Type:      MsgTypeComplete,
					ID:        jobID,
					Timestamp: time.Now().UnixMilli(),
					Payload:   mustJSON(JobCompletePayload{Job: job}),
				})
				return
			}

			if job.Progress != lastProgress {
				lastProgress = job.Progress
				if err := sock.send(WSMessage{
					Type:      MsgTypeProgress,
					ID:        jobID,
					Timestamp: time.Now().UnixMilli(),
					Payload: mustJSON(JobProgressPayload{
						JobID:    jobID,
						Status:   job.Status,
						Progress: job.Progress,
						Stage:    job.Stage,
					}),
				}); err != nil {
					// Connection is gone, stop watching
					return
				}
			}
		}
	}
}

// Helper methods

func (h *JobSocketHandler) sendMessage(sock *jobSocket, msg WSMessage) {
	if err := sock.send(msg); err != nil {
		fmt.Printf("[JobSocket] Failed to send message: %v\n", err)
	}
}

func (h *JobSocketHandler) sendError(sock *jobSocket, message, code string) {
	h.sendMessage(sock, WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSErrorPayload{Message: message, Code: code}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
