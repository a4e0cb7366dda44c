package cookie

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateServerCookie(t *testing.T) {
	m, err := NewManager(Config{Enabled: true})
	require.NoError(t, err)

	clientCookie := GenerateClientCookie(net.ParseIP("192.0.2.1"), net.ParseIP("192.0.2.53"))
	clientIP := []byte(net.ParseIP("192.0.2.1"))

	serverCookie, err := m.GenerateServerCookie(clientCookie, clientIP)
	require.NoError(t, err)

	err = m.ValidateServerCookie(clientCookie, serverCookie, clientIP)
	assert.NoError(t, err)
}

func TestValidateServerCookieRejectsTamperedCookie(t *testing.T) {
	m, err := NewManager(Config{Enabled: true})
	require.NoError(t, err)

	clientIP := []byte(net.ParseIP("192.0.2.1"))
	clientCookie := GenerateClientCookie(clientIP, net.ParseIP("192.0.2.53"))
	serverCookie, err := m.GenerateServerCookie(clientCookie, clientIP)
	require.NoError(t, err)

	serverCookie[0] ^= 0xFF
	err = m.ValidateServerCookie(clientCookie, serverCookie, clientIP)
	assert.ErrorIs(t, err, ErrInvalidServerCookie)
}

func TestParseAndFormatCookieRoundTrip(t *testing.T) {
	var client [8]byte
	copy(client[:], []byte("abcdefgh"))
	server := []byte("01234567")

	data := FormatCookie(client, server)
	gotClient, gotServer, err := ParseCookie(data)
	require.NoError(t, err)
	assert.Equal(t, client, gotClient)
	assert.Equal(t, server, gotServer)
}

func TestParseCookieRejectsShortData(t *testing.T) {
	_, _, err := ParseCookie([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidClientCookie)
}

func TestValidateQueryCookieBadCookieWhenRequired(t *testing.T) {
	m, err := NewManager(Config{Enabled: true, RequireValid: true})
	require.NoError(t, err)

	clientIP := []byte(net.ParseIP("192.0.2.1"))
	var clientCookie [8]byte
	copy(clientCookie[:], []byte("11111111"))
	badServerCookie := []byte("garbage!")

	bad, err := m.ValidateQueryCookie(clientCookie, badServerCookie, clientIP)
	assert.True(t, bad)
	assert.Error(t, err)
}

func TestValidateQueryCookieAllowsMissingCookie(t *testing.T) {
	m, err := NewManager(Config{Enabled: true, RequireValid: true})
	require.NoError(t, err)

	var clientCookie [8]byte
	bad, err := m.ValidateQueryCookie(clientCookie, nil, []byte(net.ParseIP("192.0.2.1")))
	assert.False(t, bad)
	assert.NoError(t, err)
}
