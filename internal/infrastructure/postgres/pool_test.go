package postgres

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookuper struct {
	ips []net.IP
	err error
}

func (f fakeLookuper) LookupIP(context.Context, string, string) ([]net.IP, error) {
	return f.ips, f.err
}

func TestLookupIPv4(t *testing.T) {
	ctx := context.Background()

	ip, err := lookupIPv4(ctx, fakeLookuper{}, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)

	_, err = lookupIPv4(ctx, fakeLookuper{}, "::1")
	assert.Error(t, err)

	ip, err = lookupIPv4(ctx, fakeLookuper{ips: []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("192.168.1.9")}}, "db.local")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.9", ip)

	_, err = lookupIPv4(ctx, fakeLookuper{err: errors.New("nxdomain")}, "db.local")
	assert.Error(t, err)
}
