package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltlabs/pitboss/internal/escrow"
	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/store"
)

const (
	// Time allowed to write a frame to an event subscriber.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong before the peer is dead.
	pongWait = 60 * time.Second

	// Ping period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxBodyBytes = 1 << 16
)

// Server is the HTTP surface: public spectator and player endpoints, the
// authenticated agent API, and the per-table websocket event feed. All
// escrow composition happens here; the engine never sees the chain.
type Server struct {
	manager  *Manager
	escrow   escrow.Client
	auth     KeyValidator
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewServer(m *Manager, esc escrow.Client, auth KeyValidator, hub *Hub, logger *log.Logger) *Server {
	return &Server{
		manager: m,
		escrow:  esc,
		auth:    auth,
		hub:     hub,
		logger:  logger.WithPrefix("http"),
		upgrader: websocket.Upgrader{
			// Spectator feeds are public; origin checking is left to
			// the deployment's proxy.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /tables", s.handleListTables)
	mux.HandleFunc("GET /tables/{id}", s.handleGetTable)
	mux.HandleFunc("GET /tables/{id}/hands", s.handleRecentHands)
	mux.HandleFunc("GET /tables/{id}/events", s.handleEvents)
	mux.HandleFunc("POST /tables/{id}/sit", s.handleSit)
	mux.HandleFunc("POST /tables/{id}/leave", s.handleLeave)
	mux.HandleFunc("POST /tables/{id}/action", s.handleAction)
	mux.HandleFunc("POST /tables/{id}/rebuy", s.handleRebuy)
	mux.HandleFunc("POST /tables/{id}/stand", s.handleStand)
	mux.HandleFunc("POST /tables/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /tables/{id}/add-bot", s.handleAddBot)
	mux.HandleFunc("POST /tables/{id}/emergency-refund", s.handleEmergencyRefund)

	mux.HandleFunc("GET /agent/v1/me", s.withAgent(s.handleAgentMe))
	mux.HandleFunc("GET /agent/v1/tables", s.withAgent(s.handleAgentListTables))
	mux.HandleFunc("GET /agent/v1/tables/{id}", s.withAgent(s.handleAgentGetTable))
	mux.HandleFunc("POST /agent/v1/tables/{id}/sit", s.withAgent(s.handleAgentSit))
	mux.HandleFunc("POST /agent/v1/tables/{id}/leave", s.withAgent(s.handleAgentLeave))
	mux.HandleFunc("POST /agent/v1/tables/{id}/action", s.withAgent(s.handleAgentAction))
	mux.HandleFunc("POST /agent/v1/tables/{id}/rebuy", s.withAgent(s.handleAgentRebuy))
	mux.HandleFunc("POST /agent/v1/tables/{id}/stand", s.withAgent(s.handleAgentStand))
	mux.HandleFunc("POST /agent/v1/tables/{id}/resume", s.withAgent(s.handleAgentResume))

	return mux
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

func (s *Server) writeOK(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{OK: true, Data: data}); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(response{OK: false, Error: &apiError{Code: code, Message: message}})
	if err != nil {
		s.logger.Error("encoding error response", "error", err)
	}
}

// writeError maps engine and registry sentinels onto statuses:
// validation to 400, unknown ids to 404.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrAgentNotSeated):
		s.writeErr(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, game.ErrNotYourTurn):
		s.writeErr(w, http.StatusBadRequest, "not_your_turn", err.Error())
	case errors.Is(err, game.ErrUnknownAction):
		s.writeErr(w, http.StatusBadRequest, "unknown_action", err.Error())
	case errors.Is(err, ErrUnknownStrategy):
		s.writeErr(w, http.StatusBadRequest, "unknown_strategy", err.Error())
	case errors.Is(err, escrow.ErrUnavailable):
		s.writeErr(w, http.StatusServiceUnavailable, "escrow_unavailable", err.Error())
	default:
		s.writeErr(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeErr(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// withAgent authenticates the bearer key and hands the resolved identity
// to the wrapped handler. 401 for a bad key, 503 when validation itself
// is down.
func (s *Server) withAgent(next func(http.ResponseWriter, *http.Request, *Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" {
			s.writeErr(w, http.StatusUnauthorized, "missing_key", "bearer API key required")
			return
		}
		ident, err := s.auth.ValidateKey(r.Context(), key)
		if err != nil {
			if errors.Is(err, ErrAuthUnavailable) {
				s.writeErr(w, http.StatusServiceUnavailable, "auth_unavailable", "key validation temporarily unavailable")
				return
			}
			s.writeErr(w, http.StatusUnauthorized, "invalid_key", "unknown or invalid API key")
			return
		}
		next(w, r, ident)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeOK(w, http.StatusOK, s.manager.Health())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	rows, err := s.manager.Leaderboard()
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, "store_error", "leaderboard unavailable")
		return
	}
	s.writeOK(w, http.StatusOK, rows)
}

func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	s.writeOK(w, http.StatusOK, s.manager.ListTables())
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.GetTable(r.PathValue("id"), "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, view)
}

func (s *Server) handleRecentHands(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeErr(w, http.StatusBadRequest, "bad_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	hands, err := s.manager.RecentHands(r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, hands)
}

type sitRequest struct {
	SeatNumber    *int   `json:"seatNumber"`
	BuyInAmount   int64  `json:"buyInAmount"`
	AgentName     string `json:"agentName"`
	WalletAddress string `json:"walletAddress"`
	DepositTxHash string `json:"depositTxHash"`
}

func (s *Server) handleSit(w http.ResponseWriter, r *http.Request) {
	var req sitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.sit(w, r, "", req.AgentName, req.WalletAddress, req)
}

// sit runs the deposit-then-seat sequence. When the wallet's buy-in was
// deposited here and the engine rejects the seat, the deposit is settled
// straight back.
func (s *Server) sit(w http.ResponseWriter, r *http.Request, agentID, name, wallet string, req sitRequest) {
	tableID := r.PathValue("id")
	if req.BuyInAmount <= 0 {
		s.writeErr(w, http.StatusBadRequest, "buy_in_required", "buyInAmount must be positive")
		return
	}
	seatNumber := -1
	if req.SeatNumber != nil {
		seatNumber = *req.SeatNumber
	}

	txHash := req.DepositTxHash
	deposited := false
	if wallet != "" && txHash == "" {
		h, err := s.escrow.Deposit(r.Context(), tableID, wallet, req.BuyInAmount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		txHash = h
		deposited = true
	}

	assigned, err := s.manager.SitAgent(tableID, SitParams{
		AgentID:       agentID,
		Name:          name,
		WalletAddress: wallet,
		SeatNumber:    seatNumber,
		BuyIn:         req.BuyInAmount,
	})
	if err != nil {
		if deposited {
			// The refund must outlive a dropped request.
			if _, serr := s.escrow.Settle(context.WithoutCancel(r.Context()), tableID, wallet, req.BuyInAmount); serr != nil {
				s.logger.Error("compensating refund failed, escrow holds orphaned deposit",
					"table", tableID, "wallet", wallet, "amount", req.BuyInAmount, "error", serr)
			}
		}
		s.writeError(w, err)
		return
	}
	s.manager.recordChipTx(tableID, assigned.AgentID, store.TxBuyIn, assigned.Stack, wallet, txHash)
	s.writeOK(w, http.StatusOK, assigned)
}

// LeaveResult is the cash-out response. SettlementError is set when the
// chips left the table but the chain payout failed; the chip ledger still
// records the cash-out for manual settlement.
type LeaveResult struct {
	TableID         string `json:"tableId"`
	AgentID         string `json:"agentId"`
	AgentName       string `json:"agentName"`
	Stack           int64  `json:"stack"`
	BuyIn           int64  `json:"buyIn"`
	SettleTxHash    string `json:"settleTxHash,omitempty"`
	SettlementError string `json:"settlementError,omitempty"`
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		s.writeErr(w, http.StatusBadRequest, "agent_id_required", "agentId is required")
		return
	}
	s.leave(w, r, req.AgentID)
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request, agentID string) {
	tableID := r.PathValue("id")
	out, err := s.manager.LeaveAgent(tableID, agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := LeaveResult{
		TableID:   tableID,
		AgentID:   out.AgentID,
		AgentName: out.AgentName,
		Stack:     out.Stack,
		BuyIn:     out.BuyIn,
	}
	if out.WalletAddress != "" {
		hash, serr := s.escrow.Settle(context.WithoutCancel(r.Context()), tableID, out.WalletAddress, out.Stack)
		if serr != nil {
			res.SettlementError = serr.Error()
			s.logger.Error("settlement failed, cash-out recorded for manual payout",
				"table", tableID, "agent", out.AgentID, "wallet", out.WalletAddress,
				"stack", out.Stack, "error", serr)
		} else {
			res.SettleTxHash = hash
		}
	}
	s.manager.recordChipTx(tableID, out.AgentID, store.TxCashOut, out.Stack, out.WalletAddress, res.SettleTxHash)
	s.writeOK(w, http.StatusOK, res)
}

type actionRequest struct {
	AgentID string `json:"agentId"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		s.writeErr(w, http.StatusBadRequest, "agent_id_required", "agentId is required")
		return
	}
	s.action(w, r, req.AgentID, req.Action, req.Amount)
}

// action parses the wire action string; the engine only ever sees the
// closed enum.
func (s *Server) action(w http.ResponseWriter, r *http.Request, agentID, action string, amount int64) {
	act, err := game.ParseAction(action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SubmitAction(r.PathValue("id"), agentID, act, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleRebuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agentId"`
		Amount  int64  `json:"amount"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		s.writeErr(w, http.StatusBadRequest, "agent_id_required", "agentId is required")
		return
	}
	if err := s.manager.RebuyAgent(r.PathValue("id"), req.AgentID, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.manager.recordChipTx(r.PathValue("id"), req.AgentID, store.TxRebuy, req.Amount, "", "")
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleStand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		s.writeErr(w, http.StatusBadRequest, "agent_id_required", "agentId is required")
		return
	}
	if err := s.manager.StandAgent(r.PathValue("id"), req.AgentID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		s.writeErr(w, http.StatusBadRequest, "agent_id_required", "agentId is required")
		return
	}
	if err := s.manager.ResumeAgent(r.PathValue("id"), req.AgentID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleAddBot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	added, err := s.manager.AddBot(r.PathValue("id"), req.Strategy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, added)
}

// handleEmergencyRefund settles a wallet's full escrowed balance back,
// regardless of table state. The last-resort exit when chips are stuck.
func (s *Server) handleEmergencyRefund(w http.ResponseWriter, r *http.Request) {
	tableID := r.PathValue("id")
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.WalletAddress == "" {
		s.writeErr(w, http.StatusBadRequest, "wallet_required", "walletAddress is required")
		return
	}
	if _, err := s.manager.GetTable(tableID, ""); err != nil {
		s.writeError(w, err)
		return
	}

	balance, err := s.escrow.EscrowedBalance(r.Context(), tableID, req.WalletAddress)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, "escrow_error", err.Error())
		return
	}
	result := struct {
		WalletAddress string `json:"walletAddress"`
		Refunded      int64  `json:"refunded"`
		TxHash        string `json:"txHash,omitempty"`
	}{WalletAddress: req.WalletAddress}

	if balance > 0 {
		hash, err := s.escrow.Settle(context.WithoutCancel(r.Context()), tableID, req.WalletAddress, balance)
		if err != nil {
			s.writeErr(w, http.StatusInternalServerError, "escrow_error", err.Error())
			return
		}
		result.Refunded = balance
		result.TxHash = hash
		s.manager.recordChipTx(tableID, "", store.TxRefund, balance, req.WalletAddress, hash)
		s.logger.Warn("emergency refund issued", "table", tableID,
			"wallet", req.WalletAddress, "amount", balance)
	}
	s.writeOK(w, http.StatusOK, result)
}

func (s *Server) handleAgentMe(w http.ResponseWriter, _ *http.Request, ident *Identity) {
	s.writeOK(w, http.StatusOK, ident)
}

func (s *Server) handleAgentListTables(w http.ResponseWriter, r *http.Request, _ *Identity) {
	s.handleListTables(w, r)
}

func (s *Server) handleAgentGetTable(w http.ResponseWriter, r *http.Request, ident *Identity) {
	view, err := s.manager.GetTable(r.PathValue("id"), ident.AgentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, view)
}

func (s *Server) handleAgentSit(w http.ResponseWriter, r *http.Request, ident *Identity) {
	var req sitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.sit(w, r, ident.AgentID, ident.Name, ident.WalletAddress, req)
}

func (s *Server) handleAgentLeave(w http.ResponseWriter, r *http.Request, ident *Identity) {
	s.leave(w, r, ident.AgentID)
}

func (s *Server) handleAgentAction(w http.ResponseWriter, r *http.Request, ident *Identity) {
	var req actionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.action(w, r, ident.AgentID, req.Action, req.Amount)
}

func (s *Server) handleAgentRebuy(w http.ResponseWriter, r *http.Request, ident *Identity) {
	tableID := r.PathValue("id")
	var req struct {
		Amount        int64  `json:"amount"`
		DepositTxHash string `json:"depositTxHash"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	txHash := req.DepositTxHash
	deposited := false
	if ident.WalletAddress != "" && txHash == "" {
		h, err := s.escrow.Deposit(r.Context(), tableID, ident.WalletAddress, req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		txHash = h
		deposited = true
	}

	if err := s.manager.RebuyAgent(tableID, ident.AgentID, req.Amount); err != nil {
		if deposited {
			if _, serr := s.escrow.Settle(context.WithoutCancel(r.Context()), tableID, ident.WalletAddress, req.Amount); serr != nil {
				s.logger.Error("compensating refund failed, escrow holds orphaned deposit",
					"table", tableID, "wallet", ident.WalletAddress, "amount", req.Amount, "error", serr)
			}
		}
		s.writeError(w, err)
		return
	}
	s.manager.recordChipTx(tableID, ident.AgentID, store.TxRebuy, req.Amount, ident.WalletAddress, txHash)
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleAgentStand(w http.ResponseWriter, r *http.Request, ident *Identity) {
	if err := s.manager.StandAgent(r.PathValue("id"), ident.AgentID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleAgentResume(w http.ResponseWriter, r *http.Request, ident *Identity) {
	if err := s.manager.ResumeAgent(r.PathValue("id"), ident.AgentID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, http.StatusOK, nil)
}

// handleEvents upgrades to a websocket and streams the table's events
// until the client goes away or the hub drops it for falling behind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tableID := r.PathValue("id")
	if _, err := s.manager.GetTable(tableID, ""); err != nil {
		s.writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "table", tableID, "error", err)
		return
	}
	sub := s.hub.Subscribe(tableID)
	if sub == nil {
		_ = conn.Close()
		return
	}
	go s.eventReadPump(conn, sub)
	s.eventWritePump(conn, sub)
}

func (s *Server) eventWritePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped by the hub or shutting down.
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// eventReadPump consumes control frames so pongs and closes are seen.
// Subscribers never send data frames.
func (s *Server) eventReadPump(conn *websocket.Conn, sub *Subscriber) {
	defer func() {
		s.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
