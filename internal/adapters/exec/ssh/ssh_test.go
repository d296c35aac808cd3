package ssh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/codex-console/internal/domain"
)

func TestBackendDescribe(t *testing.T) {
	b := New(domain.SSHTarget{Host: "box", Port: 2222, User: "dev"}, "secret")
	assert.Equal(t, "Remote SSH dev@box:2222", b.Describe())
}

func TestBackendDescribeDefaults(t *testing.T) {
	b := New(domain.SSHTarget{Host: "box"}, "")
	assert.Equal(t, "Remote SSH root@box:22", b.Describe())
}

func TestBackendQuote(t *testing.T) {
	b := New(domain.SSHTarget{Host: "box"}, "")
	assert.Equal(t, `'a'"'"'b'`, b.Quote("a'b"))
}

func TestBackendCloseWithoutConnection(t *testing.T) {
	b := New(domain.SSHTarget{Host: "box"}, "")
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}
