package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Sign(KindPayment, 42)
	require.NoError(t, err)

	id, err := signer.Parse(KindPayment, token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestParseRejectsWrongKind(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Sign(KindPayment, 42)
	require.NoError(t, err)

	_, err = signer.Parse(KindCredit, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewSigner("secret-a").Sign(KindReceivable, 7)
	require.NoError(t, err)

	_, err = NewSigner("secret-b").Parse(KindReceivable, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	signer := NewSigner("test-secret")

	_, err := signer.Parse(KindPattern, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseOrIDAcceptsNumericID(t *testing.T) {
	signer := NewSigner("test-secret")

	id, err := signer.ParseOrID(KindUnmatched, "17")
	require.NoError(t, err)
	assert.EqualValues(t, 17, id)
}

func TestParseOrIDAcceptsToken(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Sign(KindUnmatched, 17)
	require.NoError(t, err)

	id, err := signer.ParseOrID(KindUnmatched, token)
	require.NoError(t, err)
	assert.EqualValues(t, 17, id)
}
