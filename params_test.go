package lblaug

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParamsToDict(t *testing.T) {
	params := NewFormatParams(FormatYOLO, []string{"class_id", "score"})
	dict := params.ToDict()

	assert.Equal(t, FormatYOLO, dict["format"])
	assert.Equal(t, []string{"class_id", "score"}, dict["label_fields"])
	assert.Len(t, dict, 2, "only format and label fields are persisted")
}

func TestFormatParamsJSONRoundTrip(t *testing.T) {
	params := NewFormatParams(FormatCOCO, []string{"class_id"})

	enc, err := json.Marshal(params)
	require.NoError(t, err)

	var restored FormatParams
	require.NoError(t, json.Unmarshal(enc, &restored))
	assert.Equal(t, params, restored)
}

func TestNewFormatParamsCopiesLabelFields(t *testing.T) {
	fields := []string{"class_id"}
	params := NewFormatParams(FormatCanonical, fields)

	fields[0] = "mutated"
	assert.Equal(t, []string{"class_id"}, params.LabelFields)
}
