package importers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testRow(fields map[string]string) Row {
	return Row{Line: 2, Fields: fields}
}

func TestCoercer_Coerce(t *testing.T) {
	c := NewCoercer(func() time.Time { return fixedNow })
	specs := []FieldSpec{
		{Name: "id", Kind: KindInteger, Positive: true},
		{Name: "score", Kind: KindInteger, Required: true},
		{Name: "role", Kind: KindEnum, Allowed: []string{"user", "admin"}, Default: "user"},
		{Name: "pub_date", Kind: KindDate},
		{Name: "text", Aliases: []string{"body"}, Kind: KindString, Required: true},
	}

	t.Run("valid row", func(t *testing.T) {
		values, err := c.Coerce(testRow(map[string]string{
			"id":       "7",
			"score":    "9",
			"role":     "admin",
			"pub_date": "2019-09-24T21:08:21.567Z",
			"body":     "great",
		}), specs)
		require.NoError(t, err)
		assert.Equal(t, uint(7), values.ID())
		assert.Equal(t, int64(9), values.Int("score"))
		assert.Equal(t, "admin", values.String("role"))
		assert.Equal(t, "great", values.String("text"))
		assert.Equal(t, 2019, values.Time("pub_date").Year())
	})

	t.Run("defaults", func(t *testing.T) {
		values, err := c.Coerce(testRow(map[string]string{"score": "1", "text": "ok"}), specs)
		require.NoError(t, err)
		assert.Equal(t, "user", values.String("role"))
		assert.Equal(t, fixedNow, values.Time("pub_date"))
		assert.Zero(t, values.ID())
		_, hasID := values["id"]
		assert.False(t, hasID)
	})

	t.Run("empty enum cell is not defaulted", func(t *testing.T) {
		_, err := c.Coerce(testRow(map[string]string{"score": "1", "text": "ok", "role": ""}), specs)

		var coercionErr *CoercionError
		require.ErrorAs(t, err, &coercionErr)
		require.Len(t, coercionErr.Fields, 1)
		assert.Equal(t, "role", coercionErr.Fields[0].Field)
		assert.Contains(t, err.Error(), "role: must be one of user, admin")
	})

	t.Run("every failing field is listed", func(t *testing.T) {
		_, err := c.Coerce(testRow(map[string]string{
			"id":       "0",
			"score":    "12x",
			"role":     "superuser",
			"pub_date": "yesterday",
		}), specs)

		var coercionErr *CoercionError
		require.ErrorAs(t, err, &coercionErr)
		fields := make([]string, 0, len(coercionErr.Fields))
		for _, f := range coercionErr.Fields {
			fields = append(fields, f.Field)
		}
		assert.Equal(t, []string{"id", "score", "role", "pub_date", "text"}, fields)
		assert.Contains(t, err.Error(), `score="12x": not an integer`)
		assert.Contains(t, err.Error(), "role=\"superuser\": must be one of user, admin")
		assert.Contains(t, err.Error(), "text: required")
	})
}

func TestCoerceValue_Dates(t *testing.T) {
	spec := FieldSpec{Name: "pub_date", Kind: KindDate}
	for _, raw := range []string{
		"2019-09-24T21:08:21.567Z",
		"2019-09-24T21:08:21+03:00",
		"2019-09-24 21:08:21",
		"2019-09-24",
	} {
		v, reason := coerceValue(spec, raw)
		assert.Empty(t, reason, raw)
		assert.Equal(t, 24, v.(time.Time).Day(), raw)
	}

	_, reason := coerceValue(spec, "24/09/2019")
	assert.Equal(t, "not a date", reason)
}
