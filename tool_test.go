package dagtalk_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dagtalk/dagtalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(name string) dagtalk.ToolSpec {
	return dagtalk.ToolSpec{
		Name:        name,
		Description: "test spec",
		Parameters:  json.RawMessage(`{"type": "object"}`),
		Decode: func(json.RawMessage) (dagtalk.Intent, error) {
			return dagtalk.ListDagsIntent{}, nil
		},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("registers specs in order", func(t *testing.T) {
		t.Parallel()
		r, err := dagtalk.NewRegistry(testSpec("a"), testSpec("b"))
		require.NoError(t, err)
		specs := r.Specs()
		require.Len(t, specs, 2)
		assert.Equal(t, "a", specs[0].Name)
		assert.Equal(t, "b", specs[1].Name)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		t.Parallel()
		_, err := dagtalk.NewRegistry(testSpec("a"), testSpec("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("rejects empty names", func(t *testing.T) {
		t.Parallel()
		_, err := dagtalk.NewRegistry(testSpec(""))
		require.Error(t, err)
	})

	t.Run("rejects missing decoder", func(t *testing.T) {
		t.Parallel()
		s := testSpec("a")
		s.Decode = nil
		_, err := dagtalk.NewRegistry(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoder")
	})
}

func TestRegistry_Specs_ReturnsCopy(t *testing.T) {
	t.Parallel()
	r, err := dagtalk.NewRegistry(testSpec("a"), testSpec("b"))
	require.NoError(t, err)
	specs := r.Specs()
	specs[0] = testSpec("mutated")
	assert.Equal(t, "a", r.Specs()[0].Name)
}

func TestRegistry_Decode(t *testing.T) {
	t.Parallel()

	t.Run("routes to the named spec", func(t *testing.T) {
		t.Parallel()
		r := dagtalk.DefaultRegistry()
		intent, err := r.Decode(dagtalk.ToolTriggerDag, json.RawMessage(`{"dag_id": "payment_report_daily"}`))
		require.NoError(t, err)
		trigger, ok := intent.(dagtalk.TriggerDagIntent)
		require.True(t, ok)
		assert.Equal(t, dagtalk.DagRef("payment_report_daily"), trigger.DagID)
	})

	t.Run("unknown name returns ErrUnknownTool", func(t *testing.T) {
		t.Parallel()
		r := dagtalk.DefaultRegistry()
		_, err := r.Decode("delete_dag", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, dagtalk.ErrUnknownTool))
	})
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()
	r := dagtalk.DefaultRegistry()
	specs := r.Specs()
	require.Len(t, specs, 4)

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
		assert.NotEmpty(t, s.Description, s.Name)
		assert.True(t, json.Valid(s.Parameters), s.Name)
	}
	assert.Equal(t, []string{
		dagtalk.ToolListDags,
		dagtalk.ToolTriggerDag,
		dagtalk.ToolRunStatus,
		dagtalk.ToolDagStatus,
	}, names)
}
