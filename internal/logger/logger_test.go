package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestWithMethodTagsEntry(t *testing.T) {
	InitLogger("debug", "json")
	var buf bytes.Buffer
	Log.SetOutput(&buf)

	WithMethod("sum-tail").Warn("method failed")

	require.Contains(t, buf.String(), `"method":"sum-tail"`)
	assert.Contains(t, buf.String(), `"level":"warning"`)
}
