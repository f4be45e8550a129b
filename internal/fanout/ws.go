package fanout

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"auction-house/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sessionBuffer  = 32
	maxCommandSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the separately served frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// roomCommand is the inbound message shape for room membership changes.
type roomCommand struct {
	Action    string `json:"action"` // join_auction | leave_auction
	AuctionID string `json:"auction_id"`
}

// wsSession is one live websocket viewer. Outbound events go through a
// buffered channel; a full buffer drops the event rather than blocking the
// publisher.
type wsSession struct {
	id     string
	userID string
	conn   *websocket.Conn
	out    chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *wsSession) ID() string     { return s.id }
func (s *wsSession) UserID() string { return s.userID }

func (s *wsSession) Deliver(e Event) {
	select {
	case s.out <- e:
	case <-s.done:
	default:
	}
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// ServeWS upgrades a request to a websocket session and attaches it to the
// hub. A valid bearer token binds the session to a user so that targeted
// rejections reach it; unauthenticated sessions may still view rooms.
func ServeWS(hub *Hub, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.Warn("websocket upgrade failed", map[string]any{"error": err.Error()})
			return
		}

		sess := &wsSession{
			id:     utils.GenerateID(),
			userID: identify(c, jwtSecret),
			conn:   conn,
			out:    make(chan Event, sessionBuffer),
			done:   make(chan struct{}),
		}
		hub.Register(sess)

		go sess.writeLoop()
		go sess.readLoop(hub)
	}
}

// identify resolves an optional bearer token (Authorization header or
// ?token= query) to a user id. Any failure leaves the session anonymous.
func identify(c *gin.Context, secret []byte) string {
	raw := c.Query("token")
	if raw == "" {
		raw = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if raw == "" || len(secret) == 0 {
		return ""
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		utils.Info("websocket client connected unauthenticated", map[string]any{"error": errString(err)})
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *wsSession) readLoop(hub *Hub) {
	defer func() {
		hub.Disconnect(s.id)
		s.close()
	}()

	s.conn.SetReadLimit(maxCommandSize)
	for {
		var cmd roomCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			return
		}
		if cmd.AuctionID == "" {
			continue
		}
		switch cmd.Action {
		case "join_auction":
			hub.Join(cmd.AuctionID, s)
		case "leave_auction":
			hub.Leave(cmd.AuctionID, s.id)
		}
	}
}

func (s *wsSession) writeLoop() {
	defer s.close()

	for {
		select {
		case e := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(e); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
