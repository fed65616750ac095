package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestDescriptor_Validate(t *testing.T) {
	networkSchema := &Schema{
		Name: "network",
		Fields: []Field{
			{Name: "ssid", Type: FieldString, Extract: Extractor{Kind: ExtractLine, Pattern: `\s*ESSID:(.*)`}},
			{Name: "encrypted", Type: FieldBool, Extract: Extractor{Kind: ExtractFlag, Pattern: `\s*Encryption key:(on|off)`, When: "on"}},
		},
	}

	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "minimal command",
			desc: Descriptor{Name: "uptime", Commands: Commands{Unix: []string{"uptime"}}},
		},
		{
			name: "http",
			desc: Descriptor{Name: "ip", URL: "https://api.ipify.org", Returns: ReturnString},
		},
		{
			name:    "missing name",
			desc:    Descriptor{Commands: Commands{Unix: []string{"uptime"}}},
			wantErr: true,
		},
		{
			name:    "no templates",
			desc:    Descriptor{Name: "empty"},
			wantErr: true,
		},
		{
			name:    "unknown return kind",
			desc:    Descriptor{Name: "x", Commands: Commands{Unix: []string{"x"}}, Returns: "map"},
			wantErr: true,
		},
		{
			name: "buckets",
			desc: Descriptor{
				Name:     "scan",
				Commands: Commands{Unix: []string{"iwlist scan"}},
				Returns:  ReturnRecords,
				Parse:    &ParseSpec{Kind: SpecBuckets, Boundary: `.*Cell \d\d.*`, Schema: networkSchema},
			},
		},
		{
			name: "buckets without records return",
			desc: Descriptor{
				Name:     "scan",
				Commands: Commands{Unix: []string{"iwlist scan"}},
				Returns:  ReturnString,
				Parse:    &ParseSpec{Kind: SpecBuckets, Boundary: `.*Cell`, Schema: networkSchema},
			},
			wantErr: true,
		},
		{
			name:    "record without schema",
			desc:    Descriptor{Name: "os", Commands: Commands{Unix: []string{"cat /etc/os-release"}}, Returns: ReturnRecord},
			wantErr: true,
		},
		{
			name: "bad regex",
			desc: Descriptor{
				Name:     "bad",
				Commands: Commands{Unix: []string{"x"}},
				Returns:  ReturnString,
				Parse:    &ParseSpec{Kind: SpecLine, Extract: &Extractor{Kind: ExtractLine, Pattern: `(`}},
			},
			wantErr: true,
		},
		{
			name: "group out of range",
			desc: Descriptor{
				Name:     "bad",
				Commands: Commands{Unix: []string{"x"}},
				Returns:  ReturnString,
				Parse:    &ParseSpec{Kind: SpecLine, Extract: &Extractor{Kind: ExtractLine, Pattern: `a(b)`, Group: intPtr(2)}},
			},
			wantErr: true,
		},
		{
			name: "column without split",
			desc: Descriptor{
				Name:     "df",
				Commands: Commands{Unix: []string{"df"}},
				Returns:  ReturnRecord,
				Parse: &ParseSpec{Kind: SpecRecord, Schema: &Schema{Fields: []Field{
					{Name: "size", Extract: Extractor{Kind: ExtractColumn, Index: 1}},
				}}},
			},
			wantErr: true,
		},
		{
			name: "empty error rule",
			desc: Descriptor{
				Name:     "x",
				Commands: Commands{Unix: []string{"x"}},
				Errors:   &ErrorPolicy{Rules: []Rule{{Trigger: "busy"}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDescriptor)
				return
			}
			assert.NoError(t, err)
		})
	}
}
