package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "OD-00001", FormatOrderID(1))
	assert.Equal(t, "CUST00042", FormatCustomerID(42))
	assert.Equal(t, "SKU99999", FormatSKUID(99999))
	assert.Equal(t, "OD-123456", FormatOrderID(123456), "wider numbers are not truncated")
}
