package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsRoundTrip(t *testing.T) {
	original := Settings{
		RepeatMode:  RepeatAll,
		ShuffleMode: ShuffleEndless,
		Volume:      42,
	}

	encoded := encodeSettings(original)
	stored := make(map[string]string, len(encoded))
	for k, v := range encoded {
		stored[k] = v.(string)
	}

	assert.Equal(t, original, decodeSettings(stored))
}

func TestDecodeSettingsDefaults(t *testing.T) {
	settings := decodeSettings(map[string]string{})
	assert.Equal(t, RepeatNone, settings.RepeatMode)
	assert.Equal(t, ShuffleNone, settings.ShuffleMode)
	assert.Equal(t, 0, settings.Volume)
}

func TestDecodeSettingsIgnoresMalformedValues(t *testing.T) {
	settings := decodeSettings(map[string]string{
		"repeat_mode":  "sideways",
		"shuffle_mode": "endless",
		"volume":       "not-a-number",
	})
	assert.Equal(t, RepeatNone, settings.RepeatMode)
	assert.Equal(t, ShuffleEndless, settings.ShuffleMode)
	assert.Equal(t, 0, settings.Volume)
}
