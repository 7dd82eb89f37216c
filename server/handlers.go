package server

import (
	"errors"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"dmsg/db"
	"dmsg/protocol"
)

// requireAuth guards operations that need a bound user.
func (s *Server) requireAuth(session *Session, operation string, conn net.Conn) bool {
	if session.Username == "" {
		s.sendError(conn, operation, "Not authenticated")
		return false
	}
	return true
}

func (s *Server) handlePing(conn net.Conn) {
	s.sendPacket(conn, "pong")
}

func (s *Server) handleRegister(pkt *protocol.Packet, conn net.Conn) {
	username := pkt.Destination
	password := pkt.Content

	if username == "" || password == "" {
		s.sendError(conn, "reg", "Invalid data")
		return
	}

	_, err := s.db.RegisterUser(username, password)
	switch {
	case err == nil:
		s.sendOK(conn, "reg")
	case errors.Is(err, db.ErrAlreadyExists):
		s.sendError(conn, "reg", "User already exists")
	case errors.Is(err, db.ErrInvalidInput):
		s.sendError(conn, "reg", "Invalid data")
	default:
		log.Printf("Register error: %v", err)
		s.sendError(conn, "reg", "Internal error")
	}
}

func (s *Server) handleAuth(session *Session, pkt *protocol.Packet, conn net.Conn) {
	username := pkt.Destination
	password := pkt.Content

	if username == "" || password == "" {
		s.sendError(conn, "auth", "Invalid credentials")
		return
	}

	if session.Username != "" {
		s.sendOK(conn, "auth")
		return
	}

	valid, err := s.db.AuthenticateUser(username, password)
	if err != nil {
		log.Printf("Auth error: %v", err)
		s.sendError(conn, "auth", "Internal error")
		return
	}

	if !valid {
		s.sendError(conn, "auth", "Invalid credentials")
		return
	}

	session.Username = username
	s.addSession(username, session)

	// Login counts as the first heartbeat; record it before the reply
	// so the user is visibly online the moment auth succeeds.
	if err := s.db.Heartbeat(username); err != nil {
		log.Printf("Failed to record heartbeat for %s: %v", username, err)
	}

	s.sendOK(conn, "auth")
}

func (s *Server) handleHeartbeat(session *Session, conn net.Conn) {
	if !s.requireAuth(session, "hb", conn) {
		return
	}

	if err := s.db.Heartbeat(session.Username); err != nil {
		log.Printf("Heartbeat error: %v", err)
		s.sendError(conn, "hb", "Internal error")
		return
	}

	s.sendOK(conn, "hb")
}

func (s *Server) handleStatus(session *Session, pkt *protocol.Packet, conn net.Conn) {
	if !s.requireAuth(session, "stat", conn) {
		return
	}

	target := pkt.Destination
	if target == "" {
		s.sendError(conn, "stat", "User required")
		return
	}

	user, err := s.db.GetUser(target)
	if err != nil {
		log.Printf("Status error: %v", err)
		s.sendError(conn, "stat", "Internal error")
		return
	}
	if user == nil {
		s.sendError(conn, "stat", "User not found")
		return
	}

	online, err := s.db.IsOnline(target, time.Now().UTC())
	if err != nil {
		log.Printf("Status error: %v", err)
		s.sendError(conn, "stat", "Internal error")
		return
	}

	status := "off"
	if online {
		status = "on"
	}
	s.sendPacket(conn, "stat", target, status)
}

func (s *Server) handleUsers(session *Session, conn net.Conn) {
	if !s.requireAuth(session, "users", conn) {
		return
	}

	users, err := s.db.ListUsers()
	if err != nil {
		log.Printf("Users error: %v", err)
		s.sendError(conn, "users", "Internal error")
		return
	}

	items := make([]string, 0, len(users))
	for _, username := range users {
		items = append(items, protocol.Escape(username))
	}

	// Payload is a comma-joined list; the commas must stay unescaped.
	s.sendPacketRaw(conn, "users", strings.Join(items, ","))
}

func (s *Server) handleMessage(session *Session, pkt *protocol.Packet, conn net.Conn) {
	if !s.requireAuth(session, "msg", conn) {
		return
	}

	receiver := pkt.Destination
	if receiver == "" {
		s.sendError(conn, "msg", "Recipient required")
		return
	}

	id, err := s.db.SendMessage(session.Username, receiver, pkt.Content)
	switch {
	case err == nil:
		s.sendPacket(conn, "ok", "msg", strconv.FormatInt(id, 10))
	case errors.Is(err, db.ErrEmptyContent):
		s.sendError(conn, "msg", "Message text required")
	case errors.Is(err, db.ErrInvalidUser):
		s.sendError(conn, "msg", "Recipient not found")
	default:
		log.Printf("Message error: %v", err)
		s.sendError(conn, "msg", "Internal error")
	}
}

func (s *Server) handleHistory(session *Session, pkt *protocol.Packet, conn net.Conn) {
	if !s.requireAuth(session, "hist", conn) {
		return
	}

	contact := pkt.Destination
	if contact == "" {
		s.sendError(conn, "hist", "Contact required")
		return
	}

	messages, err := s.db.GetConversation(session.Username, contact)
	if err != nil {
		log.Printf("History error: %v", err)
		s.sendError(conn, "hist", "Internal error")
		return
	}

	var items []string
	for _, msg := range messages {
		readFlag := "unread"
		if msg.Read {
			readFlag = "read"
		}
		// Format: msg|sender|content|timestamp|read (inner | stays
		// unescaped inside the list payload).
		item := "msg|" + protocol.Escape(msg.Sender) + "|" + protocol.Escape(msg.Content) +
			"|" + msg.Timestamp.Format(time.RFC3339) + "|" + readFlag
		items = append(items, item)
	}

	rawContent := protocol.Escape(contact) + "|" + strings.Join(items, ",")
	s.sendPacketRaw(conn, "hist", rawContent)
}

func (s *Server) handleRead(session *Session, pkt *protocol.Packet, conn net.Conn) {
	if !s.requireAuth(session, "read", conn) {
		return
	}

	contact := pkt.Destination
	if contact == "" {
		s.sendError(conn, "read", "Contact required")
		return
	}

	if err := s.db.MarkRead(session.Username, contact); err != nil {
		log.Printf("Read error: %v", err)
		s.sendError(conn, "read", "Internal error")
		return
	}

	s.sendOK(conn, "read")
}

func (s *Server) handleUnread(session *Session, pkt *protocol.Packet, conn net.Conn) {
	if !s.requireAuth(session, "unread", conn) {
		return
	}

	// Bare unread is the aggregate badge across every contact.
	if pkt.Destination == "" {
		total, err := s.db.TotalUnread(session.Username)
		if err != nil {
			log.Printf("Unread error: %v", err)
			s.sendError(conn, "unread", "Internal error")
			return
		}
		s.sendPacketRaw(conn, "unread", strconv.Itoa(total))
		return
	}

	count, err := s.db.UnreadCount(session.Username, pkt.Destination)
	if err != nil {
		log.Printf("Unread error: %v", err)
		s.sendError(conn, "unread", "Internal error")
		return
	}

	s.sendPacketRaw(conn, "unread", protocol.Escape(pkt.Destination)+"|"+strconv.Itoa(count))
}

func (s *Server) handleContacts(session *Session, conn net.Conn) {
	if !s.requireAuth(session, "contacts", conn) {
		return
	}

	contacts, err := s.db.OrderedContacts(session.Username)
	if err != nil {
		log.Printf("Contacts error: %v", err)
		s.sendError(conn, "contacts", "Internal error")
		return
	}

	var items []string
	for _, c := range contacts {
		// Format: contact|last_activity (inner | stays unescaped).
		item := protocol.Escape(c.Username) + "|" + c.LastActivity.Format(time.RFC3339)
		items = append(items, item)
	}

	s.sendPacketRaw(conn, "contacts", strings.Join(items, ","))
}

func (s *Server) handleBye(session *Session, conn net.Conn) {
	if session.Username != "" {
		s.removeSession(session.Username)

		// Explicit logout clears presence immediately, even inside
		// the liveness window. Done before the reply so the user is
		// offline the moment the client sees bye.
		if err := s.db.ClearPresence(session.Username); err != nil {
			log.Printf("Failed to clear presence for %s: %v", session.Username, err)
		}
		log.Printf("Client %s disconnected (bye) from %s", session.Username, conn.RemoteAddr().String())
	}

	s.sendPacket(conn, "bye")
}

func (s *Server) handleHelp(conn net.Conn) {
	commands := []string{
		"ping",
		"reg",
		"auth",
		"hb",
		"stat",
		"users",
		"msg",
		"hist",
		"read",
		"unread",
		"contacts",
		"bye",
		"help",
	}

	s.sendPacketRaw(conn, "help", strings.Join(commands, ","))
}
