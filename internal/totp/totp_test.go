package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	secret, err := DecodeSecret("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	code := Generate(secret, now)
	require.Len(t, code, 6)
	require.True(t, Validate(secret, code, now))
}

func TestValidateToleratesOneStepSkew(t *testing.T) {
	secret, err := DecodeSecret("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	code := Generate(secret, now)

	require.True(t, Validate(secret, code, now.Add(30*time.Second)))
	require.True(t, Validate(secret, code, now.Add(-30*time.Second)))
	require.False(t, Validate(secret, code, now.Add(90*time.Second)))
}

func TestValidateRejectsWrongCode(t *testing.T) {
	secret, err := DecodeSecret("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.False(t, Validate(secret, "000000", time.Unix(1_700_000_000, 0)))
}
