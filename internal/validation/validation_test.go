package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("value", "field"))
	assert.Error(t, ValidateRequired("", "field"))
	assert.Error(t, ValidateRequired("   ", "field"))
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID(uuid.NewString(), "event_id"))
	assert.Error(t, ValidateUUID("not-a-uuid", "event_id"))
	assert.Error(t, ValidateUUID("", "event_id"))
}

func TestValidateFutureDate(t *testing.T) {
	assert.NoError(t, ValidateFutureDate(time.Now().Add(time.Hour), "start_date"))
	assert.Error(t, ValidateFutureDate(time.Now().Add(-time.Hour), "start_date"))
}

func TestValidateAttendeeBounds(t *testing.T) {
	assert.NoError(t, ValidateAttendeeBounds(1, 1))
	assert.NoError(t, ValidateAttendeeBounds(5, 30))
	assert.Error(t, ValidateAttendeeBounds(0, 10))
	assert.Error(t, ValidateAttendeeBounds(10, 5))
}

func TestValidateEventName(t *testing.T) {
	var v EventValidation

	assert.NoError(t, v.ValidateEventName("Star party"))
	assert.Error(t, v.ValidateEventName(""))
	assert.Error(t, v.ValidateEventName("ab"))
	assert.Error(t, v.ValidateEventName(strings.Repeat("x", 101)))
}

func TestValidateEventDescription(t *testing.T) {
	var v EventValidation

	assert.NoError(t, v.ValidateEventDescription(""))
	assert.NoError(t, v.ValidateEventDescription(strings.Repeat("x", 1000)))
	assert.Error(t, v.ValidateEventDescription(strings.Repeat("x", 1001)))
}
