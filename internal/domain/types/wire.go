package types

// MessageType identifies the purpose of a Frame exchanged with the relay.
type MessageType string

// Wire message types for the relay protocol (C6/C7/C8).
const (
	MessageEstablishConnection MessageType = "establish_connection"
	MessageRegister            MessageType = "register"
	MessageGetUserBundle       MessageType = "get_user_bundle"
	MessageSendMessage         MessageType = "send_message"
	MessageError               MessageType = "error"
)

// Status reports the outcome of a relay request.
type Status string

// Status values returned in relay responses.
const (
	StatusOK            Status = "ok"
	StatusConflict      Status = "conflict"
	StatusUserNotFound  Status = "user_not_found"
	StatusBadRequest    Status = "bad_request"
	StatusUnauthorized  Status = "unauthorized"
	StatusInternalError Status = "internal_error"
)

// Frame is the envelope carried over the bidirectional relay channel. Every
// frame sent by a client after establish_connection carries a RequestID
// (establish_connection has none; Dial reads its reply directly); frames
// sent by the relay that echo a RequestID are responses, an empty RequestID
// on a later frame marks an unsolicited push (an inbound send_message from
// another client).
//
// Init and ServerIdentity carry the one handshake exchange that necessarily
// happens before either side has a shared key to seal anything with; every
// other request/response body travels sealed (AES-256-GCM, see
// internal/protocol/envelope) inside Payload, a base64 blob once marshalled
// to JSON.
type Frame struct {
	RequestID      string                       `json:"request_id,omitempty"`
	Type           MessageType                  `json:"type"`
	Status         Status                       `json:"status,omitempty"`
	Error          string                       `json:"error,omitempty"`
	Init           *EstablishConnectionRequest  `json:"init,omitempty"`
	ServerIdentity *EstablishConnectionResponse `json:"server_identity,omitempty"`
	Payload        string                       `json:"payload,omitempty"`
}

// EstablishConnectionRequest opens the outer, server-authenticated channel.
// InitialMessage carries the client's X3DH initial message (PreKeyMessage)
// addressed to the relay's own published identity. It is the one message in
// the protocol sent before a shared key exists, so it travels as plain
// public key material rather than sealed payload bytes.
type EstablishConnectionRequest struct {
	Username       Username      `json:"username"`
	InitialMessage PreKeyMessage `json:"initial_message"`
}

// EstablishConnectionResponse completes the server's side of the handshake.
// ServerIdentityPub lets a client that has not yet pinned the relay's
// identity key learn and cache it.
type EstablishConnectionResponse struct {
	ServerIdentityPub X25519Public `json:"server_identity_pub"`
}

// RegisterRequest publishes a caller's pre-key bundle, sent over the
// already-established client<->server channel.
type RegisterRequest struct {
	Bundle         PreKeyBundle          `json:"bundle"`
	OneTimePreKeys []OneTimePreKeyPublic `json:"one_time_pre_keys,omitempty"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	OneTimePreKeysStored int `json:"one_time_pre_keys_stored"`
}

// GetUserBundleRequest asks the relay for a peer's current pre-key bundle,
// consuming one one-time pre-key from the pool if any remain.
type GetUserBundleRequest struct {
	Username Username `json:"username"`
}

// GetUserBundleResponse carries the requested bundle.
type GetUserBundleResponse struct {
	Bundle PreKeyBundle `json:"bundle"`
}

// SendMessageRequest forwards an encrypted envelope to a peer who is
// currently connected to the relay. The relay does not store-and-forward;
// an offline peer yields StatusUserNotFound.
type SendMessageRequest struct {
	Envelope Envelope `json:"envelope"`
}

// SendMessageResponse acknowledges a forwarded message.
type SendMessageResponse struct{}
