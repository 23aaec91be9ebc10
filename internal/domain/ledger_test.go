package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeFor(t *testing.T) {
	tests := []struct {
		name        string
		isDebt      bool
		orderLinked bool
		previous    TransactionType
		want        TransactionType
	}{
		{"Opening debt", true, false, TransactionTypeOpeningPayment, TransactionTypeOpeningDebt},
		{"Order debt", true, true, TransactionTypeOpeningDebt, TransactionTypeOrderDebt},
		{"Order payment", false, true, TransactionTypeOpeningPayment, TransactionTypeOrderPayment},
		{"Opening payment", false, false, TransactionTypeOpeningDebt, TransactionTypeOpeningPayment},
		{"Unlinked order payment", false, false, TransactionTypeOrderPayment, TransactionTypeOpeningPayment},
		{"Manual payment stays manual", false, false, TransactionTypeManualPayment, TransactionTypeManualPayment},
		{"Manual payment linked to an order", false, true, TransactionTypeManualPayment, TransactionTypeOrderPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeFor(tt.isDebt, tt.orderLinked, tt.previous))
		})
	}
}

func TestFinancialTransaction_IsOrderDebt(t *testing.T) {
	orderID := int64(4)
	assert.True(t, (&FinancialTransaction{IsDebt: true, OrderID: &orderID}).IsOrderDebt())
	assert.False(t, (&FinancialTransaction{IsDebt: true}).IsOrderDebt())
	assert.False(t, (&FinancialTransaction{OrderID: &orderID}).IsOrderDebt())
}
