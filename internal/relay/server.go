package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"unicode"

	"github.com/gorilla/websocket"

	"wisp/internal/crypto"
	"wisp/internal/domain"
	"wisp/internal/protocol/envelope"
	"wisp/internal/protocol/x3dh"
	"wisp/internal/util/memzero"
)

const ctrlKeyInfo = "wisp-ctrl"

// Server is the relay's WebSocket endpoint. It publishes its own pre-key
// bundle for clients to X3DH against, then mediates registration, bundle
// lookup, and live message forwarding over sealed per-connection frames.
type Server struct {
	identity        domain.Identity
	signedPreKeyID  domain.SignedPreKeyID
	signedPreKey    domain.X25519Private
	signedPreKeyPub domain.X25519Public
	signedPreKeySig []byte

	otpkMu sync.Mutex
	otpks  []domain.OneTimePreKeyPair

	registry *registry
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewServer constructs a Server identified by identity, publishing
// signedPreKeyPub (signed by identity.EdPriv as signedPreKeySig) under
// signedPreKeyID, with otpks as its initial one-time pre-key pool.
func NewServer(
	identity domain.Identity,
	signedPreKeyID domain.SignedPreKeyID,
	signedPreKeyPriv domain.X25519Private,
	signedPreKeyPub domain.X25519Public,
	signedPreKeySig []byte,
	otpks []domain.OneTimePreKeyPair,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		identity:        identity,
		signedPreKeyID:  signedPreKeyID,
		signedPreKey:    signedPreKeyPriv,
		signedPreKeyPub: signedPreKeyPub,
		signedPreKeySig: signedPreKeySig,
		otpks:           otpks,
		registry:        newRegistry(),
		upgrader:        websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		log:             log,
	}
}

// Bundle returns the relay's own publishable pre-key bundle, handing out
// one one-time pre-key from its pool if any remain.
func (s *Server) Bundle() domain.PreKeyBundle {
	bundle := domain.PreKeyBundle{
		Username:              "relay",
		IdentityKey:           s.identity.XPub,
		SigningKey:            s.identity.EdPub,
		SignedPreKeyID:        s.signedPreKeyID,
		SignedPreKey:          s.signedPreKeyPub,
		SignedPreKeySignature: s.signedPreKeySig,
	}

	s.otpkMu.Lock()
	defer s.otpkMu.Unlock()
	if len(s.otpks) > 0 {
		otk := s.otpks[0]
		s.otpks = s.otpks[1:]
		bundle.OneTimePreKey = &domain.OneTimePreKeyPublic{ID: otk.ID, Pub: otk.Pub}
	}
	return bundle
}

// otpkPriv finds and consumes the private half of id from the server's own
// pool, if it was the one-time pre-key referenced by a handshake.
func (s *Server) otpkPriv(id domain.OneTimePreKeyID) *domain.X25519Private {
	if id == "" {
		return nil
	}
	s.otpkMu.Lock()
	defer s.otpkMu.Unlock()
	for i, p := range s.otpks {
		if p.ID == id {
			priv := p.Priv
			s.otpks = append(s.otpks[:i], s.otpks[i+1:]...)
			return &priv
		}
	}
	return nil
}

// HandleBundle serves the relay's own bundle over plain HTTP, letting a
// client bootstrap X3DH before it has any sealed channel to the relay.
func (s *Server) HandleBundle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Bundle())
}

// HandleWebSocket upgrades the HTTP connection and runs the client's
// session until it disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := newConn(ws, s.log)
	go c.writePump()

	if err := s.handshake(c); err != nil {
		s.log.Warn("handshake failed", "err", err)
		close(c.send)
		return
	}
	defer s.registry.unbind(c.username, c)

	if err := c.readLoop(func(f domain.Frame) error { return s.dispatch(c, f) }); err != nil {
		s.log.Debug("connection closed", "user", c.username.String(), "err", err)
	}
}

// handshake reads the client's establish_connection frame, runs X3DH as the
// responder, derives the control-channel key, and replies with the relay's
// identity.
func (s *Server) handshake(c *conn) error {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return err
	}
	var frame domain.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}
	if frame.Type != domain.MessageEstablishConnection || frame.Init == nil {
		return errProtocolViolation("expected establish_connection")
	}

	var otpkPriv *domain.X25519Private
	if frame.Init.InitialMessage.OneTimePreKeyID != "" {
		otpkPriv = s.otpkPriv(frame.Init.InitialMessage.OneTimePreKeyID)
	}
	root, err := x3dh.ResponderRoot(s.identity, s.signedPreKey, otpkPriv, frame.Init.InitialMessage)
	if err != nil {
		return err
	}
	ctrlKey, err := crypto.HKDFSHA256(root, nil, []byte(ctrlKeyInfo), 32)
	memzero.Zero(root)
	if err != nil {
		return err
	}

	c.username = frame.Init.Username
	c.ctrlKey = ctrlKey
	s.registry.bind(c.username, c)

	c.send <- domain.Frame{
		Type:           domain.MessageEstablishConnection,
		Status:         domain.StatusOK,
		ServerIdentity: &domain.EstablishConnectionResponse{ServerIdentityPub: s.identity.XPub},
	}
	return nil
}

// dispatch opens frame's sealed payload, handles it by type, and replies.
func (s *Server) dispatch(c *conn, frame domain.Frame) error {
	reply := domain.Frame{RequestID: frame.RequestID}

	plaintext, err := envelope.Open(c.ctrlKey, frame.Payload, nil)
	if err != nil {
		reply.Status = domain.StatusBadRequest
		reply.Error = "malformed sealed payload"
		c.push(reply)
		return nil
	}

	switch frame.Type {
	case domain.MessageRegister:
		var req domain.RegisterRequest
		if err := json.Unmarshal(plaintext, &req); err != nil {
			reply.Status = domain.StatusBadRequest
			break
		}
		req.Bundle.Username = c.username
		reply.Type = domain.MessageRegister
		if !validUsername(c.username) {
			reply.Status = domain.StatusBadRequest
			reply.Error = "invalid username"
			break
		}
		stored, conflict := s.registry.register(req.Bundle, req.OneTimePreKeys)
		if conflict {
			reply.Status = domain.StatusConflict
			reply.Error = "username already registered"
			break
		}
		reply.Status = domain.StatusOK
		s.seal(&reply, domain.RegisterResponse{OneTimePreKeysStored: stored}, c.ctrlKey)

	case domain.MessageGetUserBundle:
		var req domain.GetUserBundleRequest
		if err := json.Unmarshal(plaintext, &req); err != nil {
			reply.Status = domain.StatusBadRequest
			break
		}
		bundle, ok := s.registry.lookup(req.Username)
		reply.Type = domain.MessageGetUserBundle
		if !ok {
			reply.Status = domain.StatusUserNotFound
			break
		}
		reply.Status = domain.StatusOK
		s.seal(&reply, domain.GetUserBundleResponse{Bundle: bundle}, c.ctrlKey)

	case domain.MessageSendMessage:
		var req domain.SendMessageRequest
		if err := json.Unmarshal(plaintext, &req); err != nil {
			reply.Status = domain.StatusBadRequest
			break
		}
		req.Envelope.From = c.username
		reply.Type = domain.MessageSendMessage
		target, ok := s.registry.connFor(req.Envelope.To)
		if !ok {
			reply.Status = domain.StatusUserNotFound
			break
		}
		push := domain.Frame{Type: domain.MessageSendMessage}
		s.seal(&push, req.Envelope, target.ctrlKey)
		target.push(push)
		reply.Status = domain.StatusOK

	default:
		reply.Status = domain.StatusBadRequest
		reply.Error = "unknown message type"
	}

	c.push(reply)
	return nil
}

// seal marshals v to JSON and seals it under key into reply.Payload.
func (s *Server) seal(reply *domain.Frame, v any, key []byte) {
	raw, err := json.Marshal(v)
	if err != nil {
		reply.Status = domain.StatusInternalError
		return
	}
	sealed, err := envelope.Seal(key, nil, raw)
	if err != nil {
		reply.Status = domain.StatusInternalError
		return
	}
	reply.Payload = sealed
}

type errProtocolViolation string

func (e errProtocolViolation) Error() string { return string(e) }

// validUsername reports whether u is non-empty and alphanumeric.
func validUsername(u domain.Username) bool {
	s := u.String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
