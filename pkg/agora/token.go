package agora

import (
	"bytes"
	"compress/zlib"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/vango-go/voicegate/pkg/core"
)

// tokenVersion is the AccessToken2 wire version prefix.
const tokenVersion = "007"

// DefaultTokenTTL is the fixed validity window of an issued token.
const DefaultTokenTTL = 3600 * time.Second

// Role scopes what a token holder may do on the channel.
type Role int

const (
	// RolePublisher may join and publish audio/video/data.
	RolePublisher Role = iota + 1
	// RoleSubscriber may join and receive only.
	RoleSubscriber
)

const serviceTypeRTC uint16 = 1

const (
	privJoinChannel  uint16 = 1
	privPublishAudio uint16 = 2
	privPublishVideo uint16 = 3
	privPublishData  uint16 = 4
)

// TokenIssuer builds signed, time-bound RTC join tokens for a channel and
// participant. Tokens are generated on demand and never cached: the expiry is
// recomputed and a fresh salt drawn on every call, so two tokens for the same
// (channel, uid) pair are both valid but never byte-identical.
type TokenIssuer struct {
	AppID          string
	AppCertificate string

	// TTL defaults to DefaultTokenTTL when zero.
	TTL time.Duration

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// Issue returns an AccessToken2 for uid on channel with the given role,
// expiring TTL after the call's wall-clock time. A uid of 0 means the
// platform assigns one on join.
func (iss *TokenIssuer) Issue(channel string, uid uint32, role Role) (string, error) {
	if iss.AppID == "" || iss.AppCertificate == "" {
		return "", core.NewConfigurationError("agora app id and certificate must be configured")
	}
	if channel == "" {
		return "", core.NewInvalidRequestErrorWithParam("channel name must not be empty", "channel")
	}

	ttl := iss.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now
	if iss.Now != nil {
		now = iss.Now
	}

	issueTs := uint32(now().Unix())
	expire := uint32(ttl / time.Second)
	salt, err := randUint32()
	if err != nil {
		return "", fmt.Errorf("token salt: %w", err)
	}

	// Agora packs uid 0 as the empty account string.
	uidStr := ""
	if uid != 0 {
		uidStr = strconv.FormatUint(uint64(uid), 10)
	}

	privileges := map[uint16]uint32{privJoinChannel: expire}
	if role == RolePublisher {
		privileges[privPublishAudio] = expire
		privileges[privPublishVideo] = expire
		privileges[privPublishData] = expire
	}

	var msg bytes.Buffer
	packString(&msg, iss.AppID)
	packUint32(&msg, issueTs)
	packUint32(&msg, expire)
	packUint32(&msg, salt)
	packUint16(&msg, 1) // service count
	packUint16(&msg, serviceTypeRTC)
	packPrivileges(&msg, privileges)
	packString(&msg, channel)
	packString(&msg, uidStr)

	signature := sign(iss.AppCertificate, issueTs, salt, msg.Bytes())

	var signed bytes.Buffer
	packBytes(&signed, signature)
	signed.Write(msg.Bytes())

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(signed.Bytes()); err != nil {
		return "", fmt.Errorf("compress token: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress token: %w", err)
	}

	return tokenVersion + base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}

// sign derives the HMAC-SHA256 signature over msg: the certificate is keyed
// by the issue timestamp, the result re-keyed by the salt, and that chained
// digest keys the final signature. Only the platform holding the certificate
// can reproduce it.
func sign(appCertificate string, issueTs, salt uint32, msg []byte) []byte {
	var tsBuf bytes.Buffer
	packUint32(&tsBuf, issueTs)
	hTs := hmac.New(sha256.New, tsBuf.Bytes())
	hTs.Write([]byte(appCertificate))

	var saltBuf bytes.Buffer
	packUint32(&saltBuf, salt)
	hSalt := hmac.New(sha256.New, saltBuf.Bytes())
	hSalt.Write(hTs.Sum(nil))

	hMsg := hmac.New(sha256.New, hSalt.Sum(nil))
	hMsg.Write(msg)
	return hMsg.Sum(nil)
}

func randUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func packUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func packUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func packString(buf *bytes.Buffer, s string) {
	packBytes(buf, []byte(s))
}

func packBytes(buf *bytes.Buffer, b []byte) {
	packUint16(buf, uint16(len(b)))
	buf.Write(b)
}

// packPrivileges writes the privilege map in ascending key order so the
// packed form is deterministic for a given input.
func packPrivileges(buf *bytes.Buffer, privileges map[uint16]uint32) {
	packUint16(buf, uint16(len(privileges)))
	keys := make([]uint16, 0, len(privileges))
	for k := range privileges {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		packUint16(buf, k)
		packUint32(buf, privileges[k])
	}
}
