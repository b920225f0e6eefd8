package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountDataMasker_Name(t *testing.T) {
	m := &AccountDataMasker{}
	assert.Equal(t, "account_data", m.Name())
}

func TestAccountDataMasker_AppliesTo(t *testing.T) {
	m := &AccountDataMasker{}

	assert.True(t, m.AppliesTo(`{"account_number": "1234567890"}`))
	assert.True(t, m.AppliesTo(`{"card_number": "4111111111111111"}`))
	assert.False(t, m.AppliesTo(`{"transaction_id": "TXN-001", "amount": 500}`))
}

func TestAccountDataMasker_MasksTopLevelField(t *testing.T) {
	m := &AccountDataMasker{}
	content := `{"account_number": "1234567890", "balance": 5000.00}`

	result := m.Mask(content)

	assert.NotContains(t, result, "1234567890")
	assert.Contains(t, result, "[MASKED_ACCOUNT_DATA]")
	assert.Contains(t, result, "5000")
}

func TestAccountDataMasker_MasksNestedTransactionList(t *testing.T) {
	m := &AccountDataMasker{}
	content := `{
  "transactions": [
    {"transaction_id": "TXN-001", "sender_account_number": "1111222233", "amount": 100},
    {"transaction_id": "TXN-002", "recipient_account_number": "4444555566", "amount": 200}
  ]
}`

	result := m.Mask(content)

	assert.NotContains(t, result, "1111222233")
	assert.NotContains(t, result, "4444555566")
	assert.Contains(t, result, "TXN-001")
	assert.Contains(t, result, "TXN-002")
}

func TestAccountDataMasker_MasksCardAndPin(t *testing.T) {
	m := &AccountDataMasker{}
	content := `{"card_number": "4111111111111111", "cvv": "123", "pin": "4321"}`

	result := m.Mask(content)

	assert.NotContains(t, result, "4111111111111111")
	assert.NotContains(t, result, `"cvv": "123"`)
	assert.NotContains(t, result, `"pin": "4321"`)
}

func TestAccountDataMasker_NonJSONReturnsOriginal(t *testing.T) {
	m := &AccountDataMasker{}
	content := "account_number: not-json-at-all"

	result := m.Mask(content)
	assert.Equal(t, content, result)
}

func TestAccountDataMasker_MalformedJSONReturnsOriginal(t *testing.T) {
	m := &AccountDataMasker{}
	content := `{"account_number": "1234567890"` // truncated

	result := m.Mask(content)
	assert.Equal(t, content, result)
}

func TestAccountDataMasker_NoSensitiveFieldsReturnsOriginal(t *testing.T) {
	m := &AccountDataMasker{}
	content := `{"transaction_id": "TXN-001", "amount": 500, "currency": "THB"}`

	result := m.Mask(content)
	assert.Equal(t, content, result)
}

func TestAccountDataMasker_ArrayRoot(t *testing.T) {
	m := &AccountDataMasker{}
	content := `[{"account_number": "1234567890"}, {"account_number": "9876543210"}]`

	result := m.Mask(content)

	assert.NotContains(t, result, "1234567890")
	assert.NotContains(t, result, "9876543210")
}

func TestAccountDataMasker_PreservesTrailingNewline(t *testing.T) {
	m := &AccountDataMasker{}
	content := "{\"account_number\": \"1234567890\"}\n"

	result := m.Mask(content)
	assert.True(t, len(result) > 0 && result[len(result)-1] == '\n')
}
