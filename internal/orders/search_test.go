package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  Filter
	}{
		{"pending", Filter{Status: StatusPending}},
		{"PENDING", Filter{Status: StatusPending}},
		{"Delivered", Filter{Status: StatusDelivered}},
		{"2024-05-01", Filter{Date: "2024-05-01"}},
		{"ORD-123", Filter{OrderNumber: "ORD-123"}},
		{"ord-99", Filter{OrderNumber: "ord-99"}},
		{"555-1234", Filter{CustomerPhone: "555-1234"}},
		{"+52 (55) 1234 5678", Filter{CustomerPhone: "+52 (55) 1234 5678"}},
		{"xyz789", Filter{Query: "xyz789"}},
		{"garcia", Filter{Query: "garcia"}},
		{"", Filter{}},
		{"   ", Filter{}},
		// Only the first matching rule applies: a date-shaped string never
		// reaches the phone rule even though it is all digits and dashes.
		{"2024-05-02", Filter{Date: "2024-05-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQuery(tt.query))
		})
	}
}

func TestFilter_Values(t *testing.T) {
	f := Filter{Status: StatusPending, Date: "2024-05-01"}
	v := f.Values()
	assert.Equal(t, "pending", v.Get("status"))
	assert.Equal(t, "2024-05-01", v.Get("date"))
	assert.Empty(t, v.Get("order_number"))

	assert.Empty(t, Filter{}.Values().Encode())

	q := Filter{Query: "xyz789"}.Values()
	assert.Equal(t, "xyz789", q.Get("order_number_or_phone"))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.Label())
	assert.Equal(t, "weird", Status("weird").Label())
	assert.Len(t, Statuses(), 4)
}
