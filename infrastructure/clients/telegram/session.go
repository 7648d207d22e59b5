package telegram

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/session"
)

const (
	sessionVersion = '1'
	authKeyLength  = 256
)

var ErrUnsupportedSession = errors.New("unsupported string session")

// DecodeSession turns an exported string session into gotd session data.
// The GramJS layout is tried first, anything else is handed to the Telethon decoder.
func DecodeSession(token string) (*session.Data, error) {
	token = strings.TrimSpace(token)
	if len(token) < 2 || token[0] != sessionVersion {
		return nil, ErrUnsupportedSession
	}
	raw, err := decodeBase64(token[1:])
	if err != nil {
		return nil, err
	}
	if data, ok := decodeGramJS(raw); ok {
		return data, nil
	}
	data, err := session.TelethonSession(token)
	if err != nil {
		return nil, errors.Join(ErrUnsupportedSession, err)
	}
	return data, nil
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, errors.Join(ErrUnsupportedSession, errors.New("session is not base64"))
}

// decodeGramJS reads dc(1) | addrLen(2) | addr | port(2) | authKey(256).
func decodeGramJS(raw []byte) (*session.Data, bool) {
	if len(raw) < 3 {
		return nil, false
	}
	addrLen := int(binary.BigEndian.Uint16(raw[1:3]))
	if len(raw) != 3+addrLen+2+authKeyLength {
		return nil, false
	}
	host := string(raw[3 : 3+addrLen])
	if net.ParseIP(host) == nil {
		return nil, false
	}
	port := binary.BigEndian.Uint16(raw[3+addrLen : 5+addrLen])

	var key crypto.Key
	copy(key[:], raw[5+addrLen:])
	id := key.ID()

	return &session.Data{
		DC:        int(raw[0]),
		Addr:      net.JoinHostPort(host, strconv.Itoa(int(port))),
		AuthKey:   key[:],
		AuthKeyID: id[:],
	}, true
}
