package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/xela07ax/campusface-client/internal/console/service"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
	// максимальное ожидание при ?wait=true
	decisionWait = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// консоль слушает localhost, фронт может жить на другом порту
	CheckOrigin: func(r *http.Request) bool { return true },
}

type SessionHandler struct {
	service *service.ReviewService
	logger  *zap.Logger
}

func NewSessionHandler(s *service.ReviewService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{service: s, logger: logger.Named("sessions")}
}

type createSessionRequest struct {
	Kind  string `json:"kind"`  // entry | change | member
	Scope string `json:"scope"` // id организации
}

type sessionResponse struct {
	*engine.Session
	State reconcile.State `json:"state"`
}

type decisionResponse struct {
	ActionID  string          `json:"action_id"`
	RequestID string          `json:"request_id"`
	Decision  string          `json:"decision"`
	Settled   bool            `json:"settled"`
	Error     string          `json:"error,omitempty"`
	State     reconcile.State `json:"state"`
}

// caller достает токен и владельца, положенные auth middleware.
func caller(r *http.Request) (auth.Credential, string) {
	cred, _ := auth.CredentialFrom(r.Context())
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return cred, ""
	}
	return cred, claims.SubjectID()
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Scope == "" {
		http.Error(w, "kind and scope are required", http.StatusBadRequest)
		return
	}

	cred, owner := caller(r)
	sess, err := h.service.Open(r.Context(), cred, owner, req.Kind, req.Scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, State: sess.Holder.Snapshot()})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	cred, owner := caller(r)
	sess, err := h.service.Session(cred, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, State: sess.Holder.Snapshot()})
}

func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	cred, owner := caller(r)
	st, err := h.service.Reload(r.Context(), cred, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SessionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, reconcile.DecisionApprove)
}

func (h *SessionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, reconcile.DecisionReject)
}

// decide отвечает 202 с оптимистичным состоянием. С ?wait=true ждет исход:
// 200 - подтверждено, 409 - откат с сообщением отказа.
func (h *SessionHandler) decide(w http.ResponseWriter, r *http.Request, d reconcile.Decision) {
	cred, owner := caller(r)
	id := chi.URLParam(r, "id")

	a, err := h.service.Decide(r.Context(), cred, owner, id, chi.URLParam(r, "rid"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.service.Session(cred, owner, id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := decisionResponse{
		ActionID:  a.ID,
		RequestID: a.RequestID,
		Decision:  string(a.Decision),
	}

	if r.URL.Query().Get("wait") != "true" {
		resp.State = sess.Holder.Snapshot()
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	select {
	case <-a.Done():
	case <-time.After(decisionWait):
		resp.State = sess.Holder.Snapshot()
		writeJSON(w, http.StatusAccepted, resp)
		return
	case <-r.Context().Done():
		return
	}

	resp.Settled = true
	resp.State = sess.Holder.Snapshot()
	if err := a.Err(); err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cred, owner := caller(r)
	if err := h.service.Close(cred, owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream отдает состояния сессии по WebSocket, пока сессия открыта.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	cred, owner := caller(r)
	sess, err := h.service.Session(cred, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := sess.Holder.Subscribe()
	defer unsubscribe()

	// ReadPump: входящие сообщения не нужны, ловим только закрытие и pong
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// сессия закрыта
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
