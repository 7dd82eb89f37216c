package server

import (
	"bufio"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"dmsg/db"
	"dmsg/protocol"
)

type Server struct {
	db       *db.DB
	config   *Config
	sessions map[string]*Session
	mu       sync.RWMutex
}

type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Session is the per-connection state. Handlers receive it
// explicitly; there is no process-wide notion of a current user.
type Session struct {
	Username string
	Conn     net.Conn
}

func New(database *db.DB, config *Config) *Server {
	return &Server{
		db:       database,
		config:   config,
		sessions: make(map[string]*Session),
	}
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	defer listener.Close()

	log.Printf("dmsg server started on port %d", s.config.Port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	log.Printf("New client connected from %s", remoteAddr)

	session := &Session{Conn: conn}
	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !strings.Contains(err.Error(), "use of closed network connection") {
				log.Printf("Error reading from %s: %v", remoteAddr, err)
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Never log credential-bearing packets.
		if !strings.HasPrefix(line, "auth|") && !strings.HasPrefix(line, "reg|") {
			log.Printf("Received from %s: %q", remoteAddr, line)
		}

		pkt, err := protocol.ParsePacket(line)
		if err != nil {
			log.Printf("Parse error from %s: %v", remoteAddr, err)
			s.sendError(conn, "", "Invalid packet format")
			continue
		}

		s.handlePacket(session, pkt, conn)

		// handleBye already tore the session down.
		if pkt.Type == "bye" {
			return
		}
	}

	// Dropped connection without bye: keep the presence record, the
	// liveness window expires it on its own.
	if session.Username != "" {
		s.removeSession(session.Username)
		log.Printf("Client %s disconnected from %s", session.Username, remoteAddr)
	} else {
		log.Printf("Client disconnected from %s", remoteAddr)
	}
}

func (s *Server) handlePacket(session *Session, pkt *protocol.Packet, conn net.Conn) {
	switch pkt.Type {
	case "ping":
		s.handlePing(conn)
	case "reg":
		s.handleRegister(pkt, conn)
	case "auth":
		s.handleAuth(session, pkt, conn)
	case "hb":
		s.handleHeartbeat(session, conn)
	case "stat":
		s.handleStatus(session, pkt, conn)
	case "users":
		s.handleUsers(session, conn)
	case "msg":
		s.handleMessage(session, pkt, conn)
	case "hist":
		s.handleHistory(session, pkt, conn)
	case "read":
		s.handleRead(session, pkt, conn)
	case "unread":
		s.handleUnread(session, pkt, conn)
	case "contacts":
		s.handleContacts(session, conn)
	case "bye":
		s.handleBye(session, conn)
	case "help":
		s.handleHelp(conn)
	default:
		s.sendError(conn, "", "Unknown packet type")
	}
}

// sendPacket writes pktType|field1|field2|...\n with each field
// escaped.
func (s *Server) sendPacket(conn net.Conn, pktType string, fields ...string) {
	packet := protocol.FormatPacket(append([]string{pktType}, fields...)...)
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if _, err := conn.Write([]byte(packet)); err != nil {
		log.Printf("Error writing to connection: %v", err)
	}
}

// sendPacketRaw writes pktType|rawContent\n without escaping the
// content. Used for list payloads whose inner | and , separators must
// stay unescaped.
func (s *Server) sendPacketRaw(conn net.Conn, pktType, rawContent string) {
	packet := protocol.Escape(pktType) + "|" + rawContent + "\n"
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if _, err := conn.Write([]byte(packet)); err != nil {
		log.Printf("Error writing to connection: %v", err)
	}
}

func (s *Server) sendOK(conn net.Conn, operation string) {
	s.sendPacket(conn, "ok", operation)
}

func (s *Server) sendError(conn net.Conn, operation, description string) {
	if operation != "" {
		s.sendPacket(conn, "fail", operation, description)
	} else {
		s.sendPacket(conn, "fail", description)
	}
}

func (s *Server) sendBye(conn net.Conn, reason string) {
	if reason != "" {
		s.sendPacket(conn, "bye", reason)
	} else {
		s.sendPacket(conn, "bye")
	}
}

func (s *Server) addSession(username string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[username] = session
}

func (s *Server) removeSession(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, username)
}

// Shutdown says goodbye to every live session and clears its
// presence, then drops the connections.
func (s *Server) Shutdown(reason string) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.sendBye(sess.Conn, reason)
		sess.Conn.Close()
		if sess.Username != "" {
			if err := s.db.ClearPresence(sess.Username); err != nil {
				log.Printf("Failed to clear presence for %s: %v", sess.Username, err)
			}
		}
	}
}

// Stats returns connection statistics for the control socket.
func (s *Server) Stats() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []string
	for username := range s.sessions {
		users = append(users, username)
	}

	return "connections=" + strconv.Itoa(len(s.sessions)) + ",users=" + strings.Join(users, ";")
}
