package gen3plus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceServerRoleIsIdentity(t *testing.T) {
	s := NewSequence(RoleServer)
	assert.Equal(t, uint16(0), s.Next())
	assert.Equal(t, uint16(1), s.Next())
	assert.Equal(t, uint16(2), s.Next())
}

func TestSequenceClientRoleSwapsBytes(t *testing.T) {
	s := NewSequence(RoleClient)
	assert.Equal(t, uint16(0), s.Next())
	assert.Equal(t, uint16(0x0100), s.Next())
	assert.Equal(t, uint16(0x0200), s.Next())
}

func TestSequenceTracksLastReceived(t *testing.T) {
	s := NewSequence(RoleServer)
	s.SetRecv(42)
	assert.Equal(t, uint16(42), s.Recv())
}
