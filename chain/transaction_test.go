package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/vanta/internal/keyvault"
)

func testBlockhash() Blockhash {
	return Blockhash{Blockhash: "4sGjMW1sUnHzSxGspuhpqLDx6wiyjNtZ", LastValidBlockHeight: 1500}
}

func TestTransactionSignAndVerify(t *testing.T) {
	payer, err := keyvault.Generate()
	require.NoError(t, err)
	custody, err := keyvault.Generate()
	require.NoError(t, err)

	tx := NewTransaction(payer.Address(), testBlockhash()).
		AddTransfer(custody.Address(), "recipient-address", 1_000_000)

	require.NoError(t, tx.Sign(payer.Signer()))
	require.NoError(t, tx.Sign(custody.Signer()))

	assert.Len(t, tx.Signatures, 2)
	assert.NoError(t, tx.Verify())
	assert.ElementsMatch(t, []string{payer.Address(), custody.Address()}, tx.Signers())
}

func TestTransactionVerifyRejectsTamperedMessage(t *testing.T) {
	payer, err := keyvault.Generate()
	require.NoError(t, err)

	tx := NewTransaction(payer.Address(), testBlockhash()).
		AddTransfer(payer.Address(), "recipient-address", 500)
	require.NoError(t, tx.Sign(payer.Signer()))

	tx.Instructions[0].Lamports = 5_000_000

	assert.Error(t, tx.Verify())
}

func TestTransactionVerifyRejectsUnsigned(t *testing.T) {
	tx := NewTransaction("payer", testBlockhash()).
		AddTransfer("from", "to", 100)

	assert.Error(t, tx.Verify())
}

func TestTransactionSerializeRoundTrip(t *testing.T) {
	payer, err := keyvault.Generate()
	require.NoError(t, err)

	tx := NewTransaction(payer.Address(), testBlockhash()).
		AddCreateTokenAccount(payer.Address(), "owner-address", "mint-address").
		AddTokenTransfer("source-token-acct", "token-account", "owner-address", 250_000)
	require.NoError(t, tx.Sign(payer.Signer()))

	encoded, err := tx.Serialize()
	require.NoError(t, err)

	decoded, err := DeserializeTransaction(encoded)
	require.NoError(t, err)

	assert.Equal(t, tx.FeePayer, decoded.FeePayer)
	assert.Equal(t, tx.Instructions, decoded.Instructions)
	assert.NoError(t, decoded.Verify())
}

func TestDeserializeTransactionRejectsGarbage(t *testing.T) {
	_, err := DeserializeTransaction("not-base64!!!")
	assert.Error(t, err)
}

func TestTokenAccountAddressDeterministic(t *testing.T) {
	a := TokenAccountAddress("owner-1", "mint-1")
	b := TokenAccountAddress("owner-1", "mint-1")
	c := TokenAccountAddress("owner-2", "mint-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
