package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "onboarding/pkg/domain"
)

func TestLookup(t *testing.T) {
	customerID := id.CustomerID(uuid.New())
	set := Set{"stage", "registered", "customer_id", customerID, "score", 97, "reason"}

	t.Run("string value", func(t *testing.T) {
		v, ok := set.Lookup("stage")
		assert.True(t, ok)
		assert.Equal(t, "registered", v)
	})

	t.Run("stringer value is rendered", func(t *testing.T) {
		assert.Equal(t, customerID.String(), set.String("customer_id"))
	})

	t.Run("other value types are absent", func(t *testing.T) {
		_, ok := set.Lookup("score")
		assert.False(t, ok)
	})

	t.Run("dangling key is ignored", func(t *testing.T) {
		_, ok := set.Lookup("reason")
		assert.False(t, ok)
	})

	t.Run("last value wins", func(t *testing.T) {
		assert.Equal(t, "expired", set.With("stage", "expired").String("stage"))
	})

	t.Run("missing key", func(t *testing.T) {
		assert.Equal(t, "", Set(nil).String("stage"))
	})
}

func TestWithDoesNotAlias(t *testing.T) {
	base := make(Set, 0, 8)
	base = append(base, "stage", "created")

	a := base.With("decision", "approved")
	b := base.With("decision", "rejected")

	assert.Equal(t, "approved", a.String("decision"))
	assert.Equal(t, "rejected", b.String("decision"))
	assert.Len(t, base, 2)
}
