package models_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raywall/taxless-service/models"
)

func TestKeyEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "USER#u-123", models.UserKey("u-123"))
	assert.Equal(t, "PROFILE#u-123#p-9", models.ProfileKey("u-123", "p-9"))
	assert.Equal(t, "EXPENSE#u-123#e-7", models.ExpenseKey("u-123", "e-7"))
	assert.Equal(t, "RECEIPT#u-123#r-1", models.ReceiptKey("u-123", "r-1"))
}

func TestKeyPrefixesSelectOwnRecordsOnly(t *testing.T) {
	t.Parallel()

	// The trailing separator keeps user "u-1" from matching "u-10".
	prefix := models.UserExpensesPrefix("u-1")
	assert.True(t, strings.HasPrefix(models.ExpenseKey("u-1", "e-1"), prefix))
	assert.False(t, strings.HasPrefix(models.ExpenseKey("u-10", "e-1"), prefix))

	assert.True(t, strings.HasPrefix(models.ProfileKey("u-1", "p-1"), models.UserProfilesPrefix("u-1")))
	assert.True(t, strings.HasPrefix(models.ReceiptKey("u-1", "r-1"), models.UserReceiptsPrefix("u-1")))
}
