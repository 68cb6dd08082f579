package models

import "fmt"

// Single-table key prefixes. Every record lives under the owning user's
// partition ("USER#<id>") and is typed by its sort-key prefix.
const (
	UserPrefix    = "USER#"
	ProfilePrefix = "PROFILE#"
	ExpensePrefix = "EXPENSE#"
	ReceiptPrefix = "RECEIPT#"
)

// UserKey is both the partition key of a user's item collection and the
// sort key of the user record itself.
func UserKey(userID string) string {
	return UserPrefix + userID
}

// ProfileKey builds the sort key of a tax profile record.
func ProfileKey(userID, profileID string) string {
	return fmt.Sprintf("%s%s#%s", ProfilePrefix, userID, profileID)
}

// ExpenseKey builds the sort key of an expense record.
func ExpenseKey(userID, expenseID string) string {
	return fmt.Sprintf("%s%s#%s", ExpensePrefix, userID, expenseID)
}

// ReceiptKey builds the sort key of a receipt record.
func ReceiptKey(userID, receiptID string) string {
	return fmt.Sprintf("%s%s#%s", ReceiptPrefix, userID, receiptID)
}

// UserProfilesPrefix is the begins_with prefix that selects every tax
// profile in a user's partition.
func UserProfilesPrefix(userID string) string {
	return ProfilePrefix + userID + "#"
}

// UserExpensesPrefix selects every expense in a user's partition.
func UserExpensesPrefix(userID string) string {
	return ExpensePrefix + userID + "#"
}

// UserReceiptsPrefix selects every receipt in a user's partition.
func UserReceiptsPrefix(userID string) string {
	return ReceiptPrefix + userID + "#"
}
