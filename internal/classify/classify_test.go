package classify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
)

func desc(mutate func(d *query.Descriptor)) *query.Descriptor {
	d := &query.Descriptor{Name: "scan", Returns: query.ReturnString}
	if mutate != nil {
		mutate(d)
	}
	return d
}

func TestClassify_ExitStatusReturns(t *testing.T) {
	ctx := context.Background()
	failed := &query.Outcome{ExitCode: 3, Stderr: []string{"busy"}}

	tests := []struct {
		kind query.ReturnKind
		want any
	}{
		{query.ReturnExitCode, 3},
		{query.ReturnSucceeded, false},
		{query.ReturnVoid, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d := desc(func(d *query.Descriptor) {
				d.Returns = tt.kind
				d.Errors = &query.ErrorPolicy{Rules: []query.Rule{{Trigger: "busy", Message: "Device busy"}}}
			})
			dec, err := Classify(ctx, d, "iwlist scan", failed)
			require.NoError(t, err)
			assert.True(t, dec.Final)
			assert.Equal(t, tt.want, dec.Value)
		})
	}
}

func TestClassify_TriggerPrecedence(t *testing.T) {
	d := desc(func(d *query.Descriptor) {
		d.IgnoreOnError = true
		d.RedirectErrorsToInputs = true
		d.Errors = &query.ErrorPolicy{Rules: []query.Rule{
			{Trigger: "Device or resource busy", Message: "Scans are overlapping"},
		}}
	})
	out := &query.Outcome{
		ExitCode: 0,
		Stdout:   []string{"Cell 01"},
		Stderr:   []string{"Device or resource busy"},
	}

	_, err := Classify(context.Background(), d, "iwlist wlan0 scan", out)
	require.ErrorIs(t, err, query.ErrMatchedErrorLine)

	var qerr *query.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "Scans are overlapping", qerr.Message)
	assert.Equal(t, "iwlist wlan0 scan", qerr.Command)
	assert.Equal(t, []string{"Cell 01"}, qerr.Stdout)
}

func TestClassify_NonZeroWithoutPolicy(t *testing.T) {
	out := &query.Outcome{ExitCode: 2, Stdout: []string{"partial"}, Stderr: []string{"no such device"}}

	t.Run("raises", func(t *testing.T) {
		_, err := Classify(context.Background(), desc(nil), "iwlist eth9 scan", out)
		require.ErrorIs(t, err, query.ErrNonZeroExit)

		var qerr *query.Error
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, 2, qerr.ExitCode)
		assert.Equal(t, []string{"no such device"}, qerr.Stderr)
	})

	t.Run("ignore with fallback", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) {
			d.IgnoreOnError = true
			d.ValueOnError = "unknown"
		})
		dec, err := Classify(context.Background(), d, "cmd", out)
		require.NoError(t, err)
		require.NotNil(t, dec.Fallback)
		assert.Equal(t, "unknown", *dec.Fallback)
	})

	t.Run("ignore without fallback is absent", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) { d.IgnoreOnError = true })
		dec, err := Classify(context.Background(), d, "cmd", out)
		require.NoError(t, err)
		assert.True(t, dec.Final)
		assert.Nil(t, dec.Value)
	})

	t.Run("logs failure", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := slogger.WithLogger(context.Background(), slogger.New(slogger.Config{Output: &buf}))
		d := desc(func(d *query.Descriptor) { d.IgnoreOnError = true })

		_, err := Classify(ctx, d, "cmd", out)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "no such device")
	})
}

func TestClassify_NonZeroWithPolicy(t *testing.T) {
	t.Run("hard fail uses default message", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) {
			d.Errors = &query.ErrorPolicy{DefaultMessage: "Unable to scan", HardFail: true}
		})
		_, err := Classify(context.Background(), d, "cmd", &query.Outcome{ExitCode: 1})

		var qerr *query.Error
		require.ErrorAs(t, err, &qerr)
		assert.ErrorIs(t, err, query.ErrNonZeroExit)
		assert.Equal(t, "Unable to scan", qerr.Message)
	})

	t.Run("hard fail joins stderr", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) {
			d.Errors = &query.ErrorPolicy{DefaultMessage: "Unable to scan", HardFail: true}
		})
		_, err := Classify(context.Background(), d, "cmd", &query.Outcome{ExitCode: 1, Stderr: []string{"a", "b"}})

		var qerr *query.Error
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, "a; b", qerr.Message)
	})

	t.Run("soft policy returns absent", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := slogger.WithLogger(context.Background(), slogger.New(slogger.Config{Output: &buf}))
		d := desc(func(d *query.Descriptor) {
			d.Errors = &query.ErrorPolicy{DefaultMessage: "quiet failure", SuppressLog: true}
		})

		dec, err := Classify(ctx, d, "cmd", &query.Outcome{ExitCode: 1})
		require.NoError(t, err)
		assert.True(t, dec.Final)
		assert.Nil(t, dec.Value)
		assert.Empty(t, buf.String())
	})

	t.Run("soft policy with fallback", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) {
			d.IgnoreOnError = true
			d.ValueOnError = "-1"
			d.Errors = &query.ErrorPolicy{}
		})
		dec, err := Classify(context.Background(), d, "cmd", &query.Outcome{ExitCode: 1})
		require.NoError(t, err)
		require.NotNil(t, dec.Fallback)
		assert.Equal(t, "-1", *dec.Fallback)
	})
}

func TestClassify_SpawnFailure(t *testing.T) {
	out := &query.Outcome{ExitCode: 1, Stderr: []string{"exec: not found"}, Err: errors.New("exec: not found")}

	_, err := Classify(context.Background(), desc(nil), "nope", out)
	assert.ErrorIs(t, err, query.ErrSpawnFailure)
	assert.NotErrorIs(t, err, query.ErrNonZeroExit)
}

func TestClassify_Success(t *testing.T) {
	t.Run("redirect merges stderr after stdout", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) { d.RedirectErrorsToInputs = true })
		out := &query.Outcome{ExitCode: 0, Stdout: []string{"ok"}, Stderr: []string{"warn: X"}}

		dec, err := Classify(context.Background(), d, "cmd", out)
		require.NoError(t, err)
		assert.Equal(t, []string{"ok", "warn: X"}, dec.Lines)
		assert.Equal(t, []string{"ok"}, out.Stdout, "outcome must not be modified")
	})

	t.Run("redirect overrides non-zero exit", func(t *testing.T) {
		d := desc(func(d *query.Descriptor) { d.RedirectErrorsToInputs = true })
		out := &query.Outcome{ExitCode: 1, Stderr: []string{"usage: x"}}

		dec, err := Classify(context.Background(), d, "cmd", out)
		require.NoError(t, err)
		assert.Equal(t, []string{"usage: x"}, dec.Lines)
	})

	t.Run("leftover stderr is logged", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := slogger.WithLogger(context.Background(), slogger.New(slogger.Config{Verbosity: 1, Output: &buf}))
		out := &query.Outcome{Stdout: []string{"ok"}, Stderr: []string{"", "deprecated flag"}}

		dec, err := Classify(ctx, desc(nil), "cmd", out)
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, dec.Lines)
		assert.Contains(t, buf.String(), "deprecated flag")
	})
}
