package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wisp/internal/crypto"
	"wisp/internal/domain"
	"wisp/internal/protocol/envelope"
	"wisp/internal/protocol/x3dh"
	"wisp/internal/util/memzero"
)

// Client is a WebSocket connection to a relay, already past the
// establish_connection handshake, able to make request/response calls and
// deliver unsolicited pushes (inbound messages from other users) to a
// caller-supplied handler.
type Client struct {
	ws      *websocket.Conn
	ctrlKey []byte

	mu      sync.Mutex
	pending map[string]chan domain.Frame

	OnPush func(domain.Envelope)
}

// Dial fetches the relay's bundle over HTTP, runs X3DH as the initiator,
// opens a WebSocket to wsURL, and completes the establish_connection
// handshake, returning a ready-to-use Client.
func Dial(httpBaseURL, wsURL string, ours domain.Identity, username domain.Username) (*Client, error) {
	bundle, err := fetchServerBundle(httpBaseURL)
	if err != nil {
		return nil, fmt.Errorf("relay: fetch server bundle: %w", err)
	}

	root, _, pm, err := x3dh.InitiatorRoot(ours, bundle)
	if err != nil {
		return nil, fmt.Errorf("relay: x3dh with server: %w", err)
	}
	ctrlKey, err := crypto.HKDFSHA256(root, nil, []byte(ctrlKeyInfo), 32)
	memzero.Zero(root)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dial: %w", err)
	}

	if err := ws.WriteJSON(domain.Frame{
		Type: domain.MessageEstablishConnection,
		Init: &domain.EstablishConnectionRequest{Username: username, InitialMessage: pm},
	}); err != nil {
		ws.Close()
		return nil, err
	}
	var reply domain.Frame
	if err := ws.ReadJSON(&reply); err != nil {
		ws.Close()
		return nil, err
	}
	if reply.Status != domain.StatusOK || reply.ServerIdentity == nil {
		ws.Close()
		return nil, fmt.Errorf("relay: handshake rejected: %s", reply.Error)
	}

	c := &Client{
		ws:      ws,
		ctrlKey: ctrlKey,
		pending: make(map[string]chan domain.Frame),
	}
	go c.readLoop()
	return c, nil
}

func fetchServerBundle(base string) (domain.PreKeyBundle, error) {
	resp, err := http.Get(strings.TrimSuffix(base, "/") + "/relay-bundle")
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	defer resp.Body.Close()
	var bundle domain.PreKeyBundle
	return bundle, json.NewDecoder(resp.Body).Decode(&bundle)
}

// readLoop dispatches incoming frames: replies to the pending request that
// requested them, or pushes (empty RequestID) to OnPush.
func (c *Client) readLoop() {
	for {
		var frame domain.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			c.failAllPending(err)
			return
		}
		if frame.RequestID == "" {
			c.handlePush(frame)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[frame.RequestID]
		if ok {
			delete(c.pending, frame.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- frame
		}
	}
}

func (c *Client) handlePush(frame domain.Frame) {
	if frame.Type != domain.MessageSendMessage || c.OnPush == nil {
		return
	}
	plaintext, err := envelope.Open(c.ctrlKey, frame.Payload, nil)
	if err != nil {
		return
	}
	var req domain.SendMessageRequest
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return
	}
	c.OnPush(req.Envelope)
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- domain.Frame{RequestID: id, Status: domain.StatusInternalError, Error: err.Error()}
		delete(c.pending, id)
	}
}

// call seals body under the control-channel key, sends it as msgType, and
// blocks for the correlated reply.
func (c *Client) call(msgType domain.MessageType, body any, timeout time.Duration) (domain.Frame, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return domain.Frame{}, err
	}
	sealed, err := envelope.Seal(c.ctrlKey, nil, raw)
	if err != nil {
		return domain.Frame{}, err
	}

	reqID := uuid.NewString()
	ch := make(chan domain.Frame, 1)
	c.mu.Lock()
	c.pending[reqID] = ch
	c.mu.Unlock()

	if err := c.ws.WriteJSON(domain.Frame{RequestID: reqID, Type: msgType, Payload: sealed}); err != nil {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return domain.Frame{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return domain.Frame{}, fmt.Errorf("relay: %s timed out", msgType)
	}
}

const defaultCallTimeout = 10 * time.Second

// Register publishes bundle and one-time pre-keys to the relay. A username
// already registered by someone else yields ErrorKindConflict.
func (c *Client) Register(bundle domain.PreKeyBundle, otpks []domain.OneTimePreKeyPublic) (int, error) {
	reply, err := c.call(domain.MessageRegister, domain.RegisterRequest{Bundle: bundle, OneTimePreKeys: otpks}, defaultCallTimeout)
	if err != nil {
		return 0, err
	}
	if reply.Status == domain.StatusConflict {
		return 0, &domain.KindedError{Kind: domain.ErrorKindConflict, Err: fmt.Errorf("username %s already registered", bundle.Username)}
	}
	if reply.Status != domain.StatusOK {
		return 0, fmt.Errorf("relay: register: %s", reply.Status)
	}
	pt, err := envelope.Open(c.ctrlKey, reply.Payload, nil)
	if err != nil {
		return 0, err
	}
	var resp domain.RegisterResponse
	return resp.OneTimePreKeysStored, json.Unmarshal(pt, &resp)
}

// GetUserBundle fetches a peer's current pre-key bundle.
func (c *Client) GetUserBundle(username domain.Username) (domain.PreKeyBundle, error) {
	reply, err := c.call(domain.MessageGetUserBundle, domain.GetUserBundleRequest{Username: username}, defaultCallTimeout)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if reply.Status != domain.StatusOK {
		return domain.PreKeyBundle{}, fmt.Errorf("relay: get bundle for %s: %s", username, reply.Status)
	}
	pt, err := envelope.Open(c.ctrlKey, reply.Payload, nil)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	var resp domain.GetUserBundleResponse
	return resp.Bundle, json.Unmarshal(pt, &resp)
}

// SendMessage forwards env to its recipient via the relay.
func (c *Client) SendMessage(env domain.Envelope) error {
	reply, err := c.call(domain.MessageSendMessage, domain.SendMessageRequest{Envelope: env}, defaultCallTimeout)
	if err != nil {
		return err
	}
	if reply.Status != domain.StatusOK {
		return &domain.KindedError{Kind: domain.ErrorKindUserNotFound, Err: fmt.Errorf("send to %s: %s", env.To, reply.Status)}
	}
	return nil
}

// Close shuts down the underlying WebSocket connection.
func (c *Client) Close() error {
	return c.ws.Close()
}
