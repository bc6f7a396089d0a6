package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// tempo para escrever uma mensagem no peer
	writeWait = 10 * time.Second

	// tempo para receber o próximo pong
	pongWait = 60 * time.Second

	// intervalo de ping; precisa ser menor que pongWait
	pingPeriod = (pongWait * 9) / 10

	// tamanho máximo de mensagem vinda do cliente
	maxMessageSize = 1024

	sendBuffer = 64
)

// Client é uma conexão WebSocket. As salas e o índice por leilão são
// protegidos pelo mutex do Hub.
type Client struct {
	ID         string
	CustomerID string

	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	rooms    map[string]struct{}
	lotsByAu map[string]map[string]struct{} // auction_id -> lot rooms joined under it
}

// trySend nunca bloqueia; false significa buffer cheio
func (c *Client) trySend(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// Hub gerencia conexões WebSocket e as salas lot:<id> e auction:<id>.
// Um cliente lento cujo buffer encheu é desconectado.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	now      func() time.Time

	// OnDropped é chamado quando um cliente lento é removido (métricas)
	OnDropped func()
	// OnClients recebe o total de conexões após cada mudança (métricas)
	OnClients func(n int)

	mu        sync.RWMutex
	clients   map[*Client]struct{}
	rooms     map[string]map[*Client]struct{}
	customers map[string]map[*Client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader:  websocket.Upgrader{CheckOrigin: allowOrigin},
		log:       log,
		now:       time.Now,
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
		customers: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", h.HandleWS)
	r.Get("/ws/stats", h.HandleStats)
	return r
}

// HandleWS faz o upgrade e roda o read pump na goroutine da requisição
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := h.newClient(customerID, conn)
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) newClient(customerID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		rooms:      map[string]struct{}{},
		lotsByAu:   map[string]map[string]struct{}{},
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if _, ok := h.customers[c.CustomerID]; !ok {
		h.customers[c.CustomerID] = make(map[*Client]struct{})
	}
	h.customers[c.CustomerID][c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client connected", zap.String("client_id", c.ID), zap.String("customer_id", c.CustomerID), zap.Int("clients", n))
	h.clientsChanged(n)
}

// unregister remove o cliente de todas as salas; pode ser chamado mais de uma vez
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeFromRoomLocked(room, c)
	}
	c.rooms = map[string]struct{}{}
	c.lotsByAu = map[string]map[string]struct{}{}
	if set, ok := h.customers[c.CustomerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.customers, c.CustomerID)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	h.log.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("customer_id", c.CustomerID), zap.Int("clients", n))
	h.clientsChanged(n)
}

func (h *Hub) removeFromRoomLocked(room string, c *Client) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) joinLocked(room string, c *Client) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Join inscreve o cliente em auction:<id> e, se lotID vier, em lot:<id>
func (h *Hub) Join(c *Client, auctionID, lotID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if auctionID != "" {
		h.joinLocked(AuctionRoom(auctionID), c)
	}
	if lotID != "" {
		room := LotRoom(lotID)
		h.joinLocked(room, c)
		if _, ok := c.lotsByAu[auctionID]; !ok {
			c.lotsByAu[auctionID] = map[string]struct{}{}
		}
		c.lotsByAu[auctionID][room] = struct{}{}
	}
}

// Leave sai do leilão e das salas de lote entradas junto com ele
func (h *Hub) Leave(c *Client, auctionID, lotID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if auctionID != "" {
		room := AuctionRoom(auctionID)
		h.removeFromRoomLocked(room, c)
		delete(c.rooms, room)
	}
	for room := range c.lotsByAu[auctionID] {
		h.removeFromRoomLocked(room, c)
		delete(c.rooms, room)
	}
	delete(c.lotsByAu, auctionID)
	if lotID != "" {
		room := LotRoom(lotID)
		h.removeFromRoomLocked(room, c)
		delete(c.rooms, room)
	}
}

// Broadcast entrega env uma vez a cada conexão presente em alguma das salas
// e retorna quantas receberam
func (h *Hub) Broadcast(env Envelope, rooms ...string) int {
	seen := map[*Client]struct{}{}
	var targets []*Client
	h.mu.RLock()
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	return h.deliver(targets, env)
}

// SendToCustomer entrega env apenas às conexões do cliente
func (h *Hub) SendToCustomer(customerID string, env Envelope) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.customers[customerID]))
	for c := range h.customers[customerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, env)
}

func (h *Hub) deliver(targets []*Client, env Envelope) int {
	if len(targets) == 0 {
		return 0
	}
	b, err := json.Marshal(env)
	if err != nil {
		h.log.Error("marshal envelope", zap.String("type", env.Type), zap.Error(err))
		return 0
	}
	sent := 0
	for _, c := range targets {
		if c.trySend(b) {
			sent++
			continue
		}
		h.log.Warn("slow client dropped", zap.String("client_id", c.ID), zap.String("customer_id", c.CustomerID))
		if h.OnDropped != nil {
			h.OnDropped()
		}
		h.unregister(c)
	}
	return sent
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms devolve o número de conexões por sala
func (h *Hub) Rooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.rooms))
	for room, set := range h.rooms {
		out[room] = len(set)
	}
	return out
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type Stats struct {
	Clients int            `json:"clients"`
	Rooms   map[string]int `json:"rooms"`
}

func (h *Hub) HandleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Stats{Clients: h.ClientCount(), Rooms: h.Rooms()})
}

// Close desconecta todos os clientes (shutdown)
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) clientsChanged(n int) {
	if h.OnClients != nil {
		h.OnClients(n)
	}
}

// readPump lê join/leave/ping até a conexão cair
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var msg ClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(MsgError, ErrorData{Message: "invalid message"})
			continue
		}
		switch msg.Type {
		case "join":
			if msg.AuctionID == "" && msg.LotID == "" {
				c.reply(MsgError, ErrorData{Message: "auction_id or lot_id is required"})
				continue
			}
			c.hub.Join(c, msg.AuctionID, msg.LotID)
		case "leave":
			c.hub.Leave(c, msg.AuctionID, msg.LotID)
		case "ping":
			c.reply(MsgTimerUpdate, map[string]int64{"server_time": c.hub.now().UnixMilli()})
		default:
			c.reply(MsgError, ErrorData{Message: "unknown message type"})
		}
	}
}

func (c *Client) reply(msgType string, data any) {
	env, err := NewEnvelope(msgType, data, c.hub.now().UnixMilli())
	if err != nil {
		return
	}
	c.hub.deliver([]*Client{c}, env)
}

// writePump é o único escritor da conexão
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// o Hub fechou o canal
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
