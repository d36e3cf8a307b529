package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/application/ports"
)

func TestFormatterFactory_Create(t *testing.T) {
	t.Parallel()
	factory := NewFormatterFactory()

	tests := []struct {
		name        string
		format      string
		options     ports.FormatterOptions
		wantErr     bool
		wantType    interface{}
		errContains string
	}{
		{
			name:     "table format",
			format:   "table",
			wantType: &TableFormatter{},
		},
		{
			name:     "json format",
			format:   "json",
			options:  ports.FormatterOptions{Indent: true},
			wantType: &JSONFormatter{},
		},
		{
			name:     "yaml format",
			format:   "yaml",
			wantType: &YAMLFormatter{},
		},
		{
			name:     "sarif format",
			format:   "sarif",
			options:  ports.FormatterOptions{Version: "1.0.0"},
			wantType: &SARIFFormatter{},
		},
		{
			name:        "unknown format",
			format:      "invalid",
			wantErr:     true,
			errContains: "unknown format: invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format, &bytes.Buffer{}, tt.options)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, formatter)
			assert.IsType(t, tt.wantType, formatter)
		})
	}
}

func TestFormatterFactory_SupportedFormats(t *testing.T) {
	factory := NewFormatterFactory()
	formats := factory.SupportedFormats()

	assert.Contains(t, formats, "table")
	assert.Contains(t, formats, "json")
	assert.Contains(t, formats, "yaml")
	assert.Contains(t, formats, "sarif")
	assert.Len(t, formats, 4)
}

func TestFormatterFactory_TableOptions(t *testing.T) {
	t.Parallel()
	formatter, err := NewFormatterFactory().Create("table", &bytes.Buffer{}, ports.FormatterOptions{NoColor: true, ChangesOnly: true})
	require.NoError(t, err)

	table, ok := formatter.(*TableFormatter)
	require.True(t, ok)
	assert.False(t, table.EnableColor)
	assert.True(t, table.ChangesOnly)
}

func TestFormatterFactory_NewEncoder(t *testing.T) {
	t.Parallel()
	factory := NewFormatterFactory()

	var buf bytes.Buffer
	enc, err := factory.NewEncoder("yaml", &buf)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(map[string]int{"files": 3}))
	assert.Equal(t, "files: 3\n", buf.String())

	buf.Reset()
	enc, err = factory.NewEncoder("json", &buf)
	require.NoError(t, err)
	require.NoError(t, enc.Encode([]string{"a"}))
	assert.JSONEq(t, `["a"]`, buf.String())

	_, err = factory.NewEncoder("sarif", &buf)
	assert.ErrorContains(t, err, "use json or yaml")
}
