package telegram

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/gotd/td/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, authKeyLength)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func gramJSSession(dc byte, host string, port uint16, key []byte) string {
	raw := []byte{dc}
	raw = binary.BigEndian.AppendUint16(raw, uint16(len(host)))
	raw = append(raw, host...)
	raw = binary.BigEndian.AppendUint16(raw, port)
	raw = append(raw, key...)
	return "1" + base64.StdEncoding.EncodeToString(raw)
}

func TestDecodeSession_GramJS(t *testing.T) {
	key := testKey()

	data, err := DecodeSession(gramJSSession(2, "149.154.167.50", 443, key))
	require.NoError(t, err)

	var k crypto.Key
	copy(k[:], key)
	id := k.ID()

	assert.Equal(t, 2, data.DC)
	assert.Equal(t, "149.154.167.50:443", data.Addr)
	assert.Equal(t, key, data.AuthKey)
	assert.Equal(t, id[:], data.AuthKeyID)
}

func TestDecodeSession_GramJSIPv6(t *testing.T) {
	data, err := DecodeSession(gramJSSession(4, "2001:67c:4e8:f004::b", 443, testKey()))
	require.NoError(t, err)
	assert.Equal(t, "[2001:67c:4e8:f004::b]:443", data.Addr)
}

func TestDecodeSession_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":           "",
		"wrong version":   "2" + base64.StdEncoding.EncodeToString([]byte("abc")),
		"not base64":      "1!!!",
		"truncated key":   gramJSSession(2, "149.154.167.50", 443, testKey()[:100]),
		"host is no addr": gramJSSession(2, "not-an-ip", 443, testKey()),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSession(token)
			assert.Error(t, err)
		})
	}
}
