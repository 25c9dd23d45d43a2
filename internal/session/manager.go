package session

import (
	"fmt"
	"sync"
	"time"

	"wisp/internal/domain"
	"wisp/internal/protocol/ratchet"
	"wisp/internal/protocol/x3dh"
	"wisp/internal/relay"
	"wisp/internal/util/memzero"
)

// inbound is a decrypted message waiting to be handed to Receive.
type inbound struct {
	peer      domain.Username
	plaintext []byte
	timestamp int64
	err       error
}

// peerSession holds everything the manager needs to keep talking to one
// peer: their ratchet state, and (until the first message lands) the
// PreKeyMessage that must be attached to the first envelope we send them.
type peerSession struct {
	ratchet       domain.RatchetState
	pendingPreKey *domain.PreKeyMessage
}

// Manager is the client-side session layer: one Double Ratchet per peer,
// bootstrapped over X3DH, carried over a relay.Client connection.
type Manager struct {
	identity domain.Identity
	username domain.Username
	prekeys  domain.PreKeyStore
	client   *relay.Client

	mu    sync.Mutex
	peers map[domain.Username]*peerSession

	inbox chan inbound
}

// NewManager wires a Manager around a relay.Client that has already
// completed Dial; registration is done afterwards through Manager.Register.
func NewManager(identity domain.Identity, username domain.Username, prekeys domain.PreKeyStore, client *relay.Client) *Manager {
	m := &Manager{
		identity: identity,
		username: username,
		prekeys:  prekeys,
		client:   client,
		peers:    make(map[domain.Username]*peerSession),
		inbox:    make(chan inbound, 64),
	}
	client.OnPush = m.handleEnvelope
	return m
}

var _ domain.UI = (*Manager)(nil)

// Register assembles our current pre-key bundle from already-generated
// local key material (see internal/services/prekey) and publishes it, and
// its one-time pre-key pool, to the relay under username.
func (m *Manager) Register(username domain.Username) error {
	spkID, ok, err := m.prekeys.CurrentSignedPreKeyID()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session: no signed pre-key generated yet")
	}
	_, spkPub, sig, ok, err := m.prekeys.LoadSignedPreKey(spkID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session: signed pre-key %s missing", spkID)
	}
	otpks, err := m.prekeys.ListOneTimePreKeyPublics()
	if err != nil {
		return err
	}

	bundle := domain.PreKeyBundle{
		Username:              username,
		IdentityKey:           m.identity.XPub,
		SigningKey:            m.identity.EdPub,
		SignedPreKeyID:        spkID,
		SignedPreKey:          spkPub,
		SignedPreKeySignature: sig,
	}
	_, err = m.client.Register(bundle, otpks)
	return err
}

// AddPeer fetches peer's current bundle from the relay and runs X3DH as the
// initiator, starting a fresh Double Ratchet session ready to send on.
func (m *Manager) AddPeer(peer domain.Username) error {
	bundle, err := m.client.GetUserBundle(peer)
	if err != nil {
		return &domain.KindedError{Kind: domain.ErrorKindTransport, Err: err}
	}

	root, _, pm, err := x3dh.InitiatorRoot(m.identity, bundle)
	if err != nil {
		return &domain.KindedError{Kind: domain.ErrorKindBadSignature, Err: err}
	}

	st, err := ratchet.InitSender(root, bundle.SignedPreKey)
	memzero.Zero(root)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.peers[peer] = &peerSession{ratchet: st, pendingPreKey: &pm}
	m.mu.Unlock()
	return nil
}

// Send encrypts plaintext under the peer's ratchet and forwards it through
// the relay. A peer with no session yet (no prior AddPeer) yields
// ErrorKindNoSession.
func (m *Manager) Send(peer domain.Username, plaintext []byte) error {
	m.mu.Lock()
	sess, ok := m.peers[peer]
	m.mu.Unlock()
	if !ok {
		return &domain.KindedError{Kind: domain.ErrorKindNoSession, Err: fmt.Errorf("no session with %s, call AddPeer first", peer)}
	}

	ad := []byte(m.username.String() + "->" + peer.String())

	m.mu.Lock()
	header, cipher, err := ratchet.Encrypt(&sess.ratchet, ad, plaintext)
	pending := sess.pendingPreKey
	sess.pendingPreKey = nil
	m.mu.Unlock()
	if err != nil {
		return &domain.KindedError{Kind: domain.ErrorKindDecryptFailed, Err: err}
	}

	env := domain.Envelope{
		From:           m.username,
		To:             peer,
		Header:         header,
		Cipher:         cipher,
		AssociatedData: ad,
		PreKey:         pending,
		Timestamp:      time.Now().Unix(),
	}
	if err := m.client.SendMessage(env); err != nil {
		return err
	}
	return nil
}

// Receive blocks until a decrypted message from any peer arrives.
func (m *Manager) Receive() (domain.Username, []byte, int64, error) {
	msg := <-m.inbox
	return msg.peer, msg.plaintext, msg.timestamp, msg.err
}

// handleEnvelope is the relay.Client push callback: it decrypts env,
// bootstrapping a responder session from env.PreKey on first contact, and
// queues the result for Receive.
func (m *Manager) handleEnvelope(env domain.Envelope) {
	m.mu.Lock()
	sess, ok := m.peers[env.From]
	m.mu.Unlock()

	if !ok {
		st, err := m.acceptHandshake(env)
		if err != nil {
			m.inbox <- inbound{peer: env.From, err: err}
			return
		}
		sess = &peerSession{ratchet: st}
		m.mu.Lock()
		m.peers[env.From] = sess
		m.mu.Unlock()
	}

	m.mu.Lock()
	plaintext, err := ratchet.Decrypt(&sess.ratchet, env.AssociatedData, env.Header, env.Cipher)
	m.mu.Unlock()
	if err != nil {
		m.inbox <- inbound{peer: env.From, err: &domain.KindedError{Kind: domain.ErrorKindDecryptFailed, Err: err}}
		return
	}
	m.inbox <- inbound{peer: env.From, plaintext: plaintext, timestamp: env.Timestamp}
}

// acceptHandshake runs X3DH as the responder against a first-contact
// envelope's PreKeyMessage and starts the receiving side of the ratchet.
func (m *Manager) acceptHandshake(env domain.Envelope) (domain.RatchetState, error) {
	if env.PreKey == nil {
		return domain.RatchetState{}, &domain.KindedError{Kind: domain.ErrorKindNoSession, Err: fmt.Errorf("no session with %s and first message carries no handshake", env.From)}
	}
	if len(env.Header.DiffieHellmanPublicKey) != len(domain.X25519Public{}) {
		return domain.RatchetState{}, fmt.Errorf("session: bad ratchet key length %d in first message from %s", len(env.Header.DiffieHellmanPublicKey), env.From)
	}

	signedPreKeyPriv, signedPreKeyPub, _, ok, err := m.prekeys.LoadSignedPreKey(env.PreKey.SignedPreKeyID)
	if err != nil {
		return domain.RatchetState{}, err
	}
	if !ok {
		return domain.RatchetState{}, fmt.Errorf("session: unknown signed pre-key %s referenced by handshake", env.PreKey.SignedPreKeyID)
	}

	var otpkPriv *domain.X25519Private
	if env.PreKey.OneTimePreKeyID != "" {
		priv, _, consumed, err := m.prekeys.ConsumeOneTimePreKey(env.PreKey.OneTimePreKeyID)
		if err != nil {
			return domain.RatchetState{}, err
		}
		if consumed {
			otpkPriv = &priv
		}
	}

	root, err := x3dh.ResponderRoot(m.identity, signedPreKeyPriv, otpkPriv, *env.PreKey)
	if err != nil {
		return domain.RatchetState{}, &domain.KindedError{Kind: domain.ErrorKindBadSignature, Err: err}
	}

	st, err := ratchet.InitReceiver(root, signedPreKeyPriv, signedPreKeyPub, domain.MustX25519Public(env.Header.DiffieHellmanPublicKey))
	memzero.Zero(root)
	return st, err
}
