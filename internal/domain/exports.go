package domain

import (
	interfaces "wisp/internal/domain/interfaces"
	types "wisp/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username             = types.Username
	Fingerprint          = types.Fingerprint
	SignedPreKeyID       = types.SignedPreKeyID
	OneTimePreKeyID      = types.OneTimePreKeyID
	ConversationID       = types.ConversationID
	Identity             = types.Identity
	OneTimePreKeyPair    = types.OneTimePreKeyPair
	OneTimePreKeyPublic  = types.OneTimePreKeyPublic
	PreKeyBundle         = types.PreKeyBundle
	PreKeyMessage        = types.PreKeyMessage
	Envelope             = types.Envelope
	DecryptedMessage     = types.DecryptedMessage
	RatchetHeader        = types.RatchetHeader
	RatchetState         = types.RatchetState
	Conversation         = types.Conversation
	Session              = types.Session
	X25519Public         = types.X25519Public
	X25519Private        = types.X25519Private
	Ed25519Public        = types.Ed25519Public
	Ed25519Private       = types.Ed25519Private
	MessageType          = types.MessageType
	Status               = types.Status
	Frame                = types.Frame
	ErrorKind            = types.ErrorKind
	KindedError          = types.KindedError
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService   = interfaces.IdentityService
	PreKeyService     = interfaces.PreKeyService
	UI                = interfaces.UI
	IdentityStore     = interfaces.IdentityStore
	PreKeyStore       = interfaces.PreKeyStore
	PreKeyBundleStore = interfaces.PreKeyBundleStore
)

// MustX25519Public, MustX25519Private, MustEd25519Public, and
// MustEd25519Private reconstruct fixed-size key types from byte slices of
// known-good length (e.g. after a successful decrypt of an on-disk blob).
var (
	MustX25519Public  = types.MustX25519Public
	MustX25519Private = types.MustX25519Private
	MustEd25519Public = types.MustEd25519Public
	MustEd25519Private = types.MustEd25519Private
)

// ErrNoSignedPreKey is returned when a bundle is requested before any
// signed pre-key has been generated and stored.
var ErrNoSignedPreKey = types.ErrNoSignedPreKey

// Error kind constants, re-exported for compact callers.
const (
	ErrorKindNone              = types.ErrorKindNone
	ErrorKindUserNotFound      = types.ErrorKindUserNotFound
	ErrorKindConflict          = types.ErrorKindConflict
	ErrorKindBadSignature      = types.ErrorKindBadSignature
	ErrorKindTooManySkipped    = types.ErrorKindTooManySkipped
	ErrorKindDecryptFailed     = types.ErrorKindDecryptFailed
	ErrorKindNoSession         = types.ErrorKindNoSession
	ErrorKindTransport         = types.ErrorKindTransport
	ErrorKindProtocolViolation = types.ErrorKindProtocolViolation
)

// Message type and status constants, re-exported for compact callers.
const (
	MessageEstablishConnection = types.MessageEstablishConnection
	MessageRegister            = types.MessageRegister
	MessageGetUserBundle       = types.MessageGetUserBundle
	MessageSendMessage         = types.MessageSendMessage
	MessageError               = types.MessageError

	StatusOK            = types.StatusOK
	StatusConflict      = types.StatusConflict
	StatusUserNotFound  = types.StatusUserNotFound
	StatusBadRequest    = types.StatusBadRequest
	StatusUnauthorized  = types.StatusUnauthorized
	StatusInternalError = types.StatusInternalError
)
