package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaffJWT(t *testing.T) {
	key := []byte("secret")

	token, err := GenerateStaffJWT(42, time.Hour, key)
	require.NoError(t, err)

	claims, err := ValidateStaffJWT(token, key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.ID)

	_, err = ValidateStaffJWT(token, []byte("other"))
	assert.Error(t, err)

	expired, err := GenerateStaffJWT(42, -time.Minute, key)
	require.NoError(t, err)
	_, err = ValidateStaffJWT(expired, key)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
