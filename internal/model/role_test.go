package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"visitor", RoleVisitor, false},
		{"member", RoleMember, false},
		{" Admin ", RoleAdmin, false},
		{"owner", RoleVisitor, true},
		{"", RoleVisitor, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_JSON(t *testing.T) {
	u := User{ID: "u-1", Role: RoleMember}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"role":"member"`)

	var back User
	require.NoError(t, json.Unmarshal([]byte(`{"role":"admin"}`), &back))
	assert.Equal(t, RoleAdmin, back.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"superuser"}`), &back))
}

func TestRole_ScanValue(t *testing.T) {
	v, err := RoleAdmin.Value()
	require.NoError(t, err)
	assert.Equal(t, "admin", v)

	var r Role
	require.NoError(t, r.Scan([]byte("member")))
	assert.Equal(t, RoleMember, r)

	require.NoError(t, r.Scan(nil))
	assert.Equal(t, RoleVisitor, r)

	assert.Error(t, r.Scan(42))
}

func TestRoleSet_Normalize(t *testing.T) {
	assert.Nil(t, RoleSet{}.Normalize())
	assert.Equal(t, RoleSet{RoleMember, RoleAdmin}, RoleSet{RoleMember}.Normalize())
	assert.Equal(t, RoleSet{RoleVisitor, RoleMember, RoleAdmin}, RoleSet{RoleAdmin, RoleVisitor}.Normalize())
	assert.Equal(t, RoleSet{RoleAdmin}, RoleSet{RoleAdmin}.Normalize())
}

func TestRoleSet_ScanValue(t *testing.T) {
	var s RoleSet
	require.NoError(t, s.Scan("member,admin"))
	assert.True(t, s.Contains(RoleMember))
	assert.True(t, s.Contains(RoleAdmin))
	assert.False(t, s.Contains(RoleVisitor))

	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "member,admin", v)

	require.NoError(t, s.Scan(""))
	assert.Empty(t, s)

	assert.Error(t, s.Scan("member,owner"))
}
