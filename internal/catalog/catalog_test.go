package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homiodev/homio-hquery/internal/query"
)

const wifiCatalog = `
version: 1
schemas:
  network:
    fields:
      - name: ssid
        pattern: 'ESSID:(.*)'
      - name: encrypted
        type: bool
        pattern: 'Encryption key:(on|off)'
        when: "on"
queries:
  - name: wifi-scan
    unix: iwlist :iface scan
    windows: [netsh, wlan, show, networks]
    timeout: 30
    cache_ttl: 1m30s
    returns: records
    parse:
      kind: buckets
      boundary: '.*Cell \d\d.*'
      schema: network
    errors:
      rules:
        - trigger: Device or resource busy
          message: busy
      hard_fail: true
  - name: temp
    unix: vcgencmd measure_temp
    returns: float
    parse:
      kind: line
      extract:
        pattern: 'temp=([\d.]+).C'
    ignore_on_error: true
    value_on_error: "-1"
    value_on_disable: -1
`

func TestLoad(t *testing.T) {
	cat, err := Load(strings.NewReader(wifiCatalog), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "test.yaml", cat.Source)
	assert.Equal(t, []string{"temp", "wifi-scan"}, cat.Names())

	t.Run("converts commands and durations", func(t *testing.T) {
		d, err := cat.Find("wifi-scan")
		require.NoError(t, err)

		assert.Equal(t, []string{"iwlist :iface scan"}, d.Commands.Unix)
		assert.Equal(t, []string{"netsh", "wlan", "show", "networks"}, d.Commands.Windows)
		assert.Equal(t, 30*time.Second, d.Timeout)
		assert.Equal(t, 90*time.Second, d.CacheTTL)
		assert.Equal(t, query.ReturnRecords, d.Returns)
	})

	t.Run("resolves shared schema", func(t *testing.T) {
		d, err := cat.Find("wifi-scan")
		require.NoError(t, err)
		require.NotNil(t, d.Parse)
		require.NotNil(t, d.Parse.Schema)

		assert.Equal(t, "network", d.Parse.Schema.Name)
		require.Len(t, d.Parse.Schema.Fields, 2)
		assert.Equal(t, query.ExtractLine, d.Parse.Schema.Fields[0].Extract.Kind)
		assert.Equal(t, query.ExtractFlag, d.Parse.Schema.Fields[1].Extract.Kind)
		assert.Equal(t, query.FieldBool, d.Parse.Schema.Fields[1].Type)
		assert.Equal(t, "on", d.Parse.Schema.Fields[1].Extract.When)
	})

	t.Run("converts error policy", func(t *testing.T) {
		d, err := cat.Find("wifi-scan")
		require.NoError(t, err)
		require.NotNil(t, d.Errors)

		assert.True(t, d.Errors.HardFail)
		assert.Equal(t, []query.Rule{{Trigger: "Device or resource busy", Message: "busy"}}, d.Errors.Rules)
	})

	t.Run("infers extractor kind from spec", func(t *testing.T) {
		d, err := cat.Find("temp")
		require.NoError(t, err)
		require.NotNil(t, d.Parse.Extract)

		assert.Equal(t, query.ExtractLine, d.Parse.Extract.Kind)
		assert.True(t, d.IgnoreOnError)
		assert.Equal(t, "-1", d.ValueOnError)
		assert.Equal(t, -1, d.ValueOnDisable)
	})

	t.Run("descriptors validate", func(t *testing.T) {
		for _, d := range cat.Descriptors {
			assert.NoError(t, d.Validate(), d.Name)
		}
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := cat.Find("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "unknown schema",
			yaml:    "queries:\n  - name: x\n    unix: x\n    parse:\n      kind: record\n      schema: missing\n",
			wantErr: ErrUnknownSchema,
		},
		{
			name:    "duplicate query",
			yaml:    "queries:\n  - name: x\n    unix: a\n  - name: x\n    unix: b\n",
			wantErr: ErrDuplicate,
		},
		{
			name:    "unsupported version",
			yaml:    "version: 2\nqueries: []\n",
			wantErr: ErrUnsupportedVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml), "bad.yaml")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(strings.NewReader("queries:\n  - name: x\n    unix: a\n    retruns: int\n"), "typo.yaml")
		assert.ErrorContains(t, err, "retruns")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(strings.NewReader("queries:\n  - name: x\n    unix: a\n    timeout: soon\n"), "d.yaml")
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		cat, err := Load(strings.NewReader(""), "empty.yaml")
		require.NoError(t, err)
		assert.Empty(t, cat.Descriptors)
	})
}

func TestExtractorInference(t *testing.T) {
	yaml := `
queries:
  - name: r
    unix: x
    returns: record
    parse:
      kind: record
      schema:
        split: '\s+'
        fields:
          - name: col
            kind: column
            index: 2
          - name: any
            alternatives:
              - pattern: 'a=(.*)'
              - pattern: 'b=(.*)'
          - name: custom
            handler:
              unix: my-handler
`
	cat, err := Load(strings.NewReader(yaml), "r.yaml")
	require.NoError(t, err)

	fields := cat.Descriptors[0].Parse.Schema.Fields
	require.Len(t, fields, 3)
	assert.Equal(t, query.ExtractColumn, fields[0].Extract.Kind)
	assert.Equal(t, 2, fields[0].Extract.Index)
	assert.Equal(t, query.ExtractLines, fields[1].Extract.Kind)
	require.Len(t, fields[1].Extract.Alternatives, 2)
	assert.Equal(t, query.ExtractLine, fields[1].Extract.Alternatives[1].Kind)
	assert.Equal(t, query.ExtractCustom, fields[2].Extract.Kind)
	assert.Equal(t, "my-handler", fields[2].Extract.Unix)
}

func TestMerge(t *testing.T) {
	builtin := &Catalog{Descriptors: []query.Descriptor{
		{Name: "hostname", Description: "builtin"},
		{Name: "kernel"},
	}}
	user := &Catalog{Descriptors: []query.Descriptor{
		{Name: "custom"},
		{Name: "hostname", Description: "user"},
	}}

	merged := Merge(builtin, nil, user)
	require.Len(t, merged, 3)
	assert.Equal(t, "hostname", merged[0].Name)
	assert.Equal(t, "user", merged[0].Description)
	assert.Equal(t, "kernel", merged[1].Name)
	assert.Equal(t, "custom", merged[2].Name)
}

func TestBuiltin(t *testing.T) {
	cats, err := Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	seen := map[string]bool{}
	for _, d := range Merge(cats...) {
		if d.Returns == "" {
			d.Returns = query.ReturnString
		}
		assert.NoError(t, d.Validate(), d.Name)
		seen[d.Name] = true
	}

	for _, name := range []string{"hostname", "os-release", "wifi-scan", "outer-ip", "software-installed", "command", "gpu-temp"} {
		assert.True(t, seen[name], name)
	}
}
