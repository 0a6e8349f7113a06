package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleCanManage(t *testing.T) {
	assert.True(t, RoleAdmin.CanManage())
	assert.False(t, RoleCustomer.CanManage())
	assert.False(t, Role("superuser").CanManage())
}
