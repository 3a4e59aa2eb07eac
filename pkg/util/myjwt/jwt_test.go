package myjwt

import (
	"testing"

	"SchoolLink/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	conf := config.GetConfig()
	old := conf.JwtConfig
	conf.JwtConfig = config.JwtConfig{Key: "test-key", ExpireHours: 1, Issuer: "SchoolLink"}
	defer func() { conf.JwtConfig = old }()

	token, err := GenerateToken("acc-1", "Parent One")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Uuid)
	assert.Equal(t, "Parent One", claims.Username)
	assert.Equal(t, "SchoolLink", claims.Issuer)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestEmptyKeyRejected(t *testing.T) {
	conf := config.GetConfig()
	old := conf.JwtConfig
	conf.JwtConfig = config.JwtConfig{}
	defer func() { conf.JwtConfig = old }()

	_, err := GenerateToken("acc-1", "x")
	assert.Error(t, err)
	_, err = ParseToken("anything")
	assert.Error(t, err)
}
