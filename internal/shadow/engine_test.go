package shadow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
)

func fixedEngine(t time.Time) Engine {
	return Engine{now: func() time.Time { return t }}
}

func update(deviceID string, state model.StateDocument) model.StateUpdateDocument {
	return model.StateUpdateDocument{
		DeviceID:   deviceID,
		ShadowName: model.Default,
		TenantID:   model.Default,
		State:      state,
	}
}

// TestUpdateSequenceMatchesScenario follows spec scenario 1: a create, a
// desired write producing a delta, a reported write resolving the delta, and
// a null-leaf deletion.
func TestUpdateSequenceMatchesScenario(t *testing.T) {
	e := fixedEngine(time.Unix(1000, 0))
	s := model.NewShadow("dev-1", model.Default, model.Default)

	s, err := e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"temperature": 22.5, "humidity": 45.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Version)
	assert.Nil(t, s.State.Delta)
	assert.Equal(t, 22.5, s.State.Reported.(map[string]interface{})["temperature"])
	assert.Equal(t, uint64(1000), s.Metadata.Reported.(map[string]interface{})["temperature"])

	s, err = e.Update(s, update("dev-1", model.StateDocument{
		Desired: map[string]interface{}{"temperature": 21.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Version)
	require.NotNil(t, s.State.Delta)
	assert.Equal(t, map[string]interface{}{"temperature": 21.0}, s.State.Delta)

	s, err = e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"temperature": 21.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s.Version)
	assert.Nil(t, s.State.Delta)

	s, err = e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"humidity": nil},
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), s.Version)
	reported := s.State.Reported.(map[string]interface{})
	_, stillThere := reported["humidity"]
	assert.False(t, stillThere)
	metaReported := s.Metadata.Reported.(map[string]interface{})
	_, metaStillThere := metaReported["humidity"]
	assert.False(t, metaStillThere)
}

func TestUpdateRejectsDeviceIDMismatch(t *testing.T) {
	e := New()
	s := model.NewShadow("dev-1", model.Default, model.Default)
	_, err := e.Update(s, update("dev-2", model.StateDocument{}))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindMismatch))
}

func TestUpdateRejectsShadowNameMismatch(t *testing.T) {
	e := New()
	s := model.NewShadow("dev-1", model.NewDefaultString("alt"), model.Default)
	u := update("dev-1", model.StateDocument{})
	u.ShadowName = model.Default
	_, err := e.Update(s, u)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindMismatch))
}

func TestUpdateIsANoopVersionBumpWhenStateUnchanged(t *testing.T) {
	e := fixedEngine(time.Unix(1, 0))
	s := model.NewShadow("dev-1", model.Default, model.Default)
	s, err := e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"x": 1.0},
	}))
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Version)

	s, err = e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"x": 1.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Version, "version advances even when the merged state is identical")
}

func TestUpdateDoesNotMutateSharedNestedState(t *testing.T) {
	e := New()
	s := model.NewShadow("dev-1", model.Default, model.Default)
	s, err := e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"nested": map[string]interface{}{"a": 1.0}},
	}))
	require.NoError(t, err)

	before := s.State.Reported.(map[string]interface{})["nested"].(map[string]interface{})["a"]

	next, err := e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"nested": map[string]interface{}{"a": 2.0}},
	}))
	require.NoError(t, err)
	assert.Equal(t, before, s.State.Reported.(map[string]interface{})["nested"].(map[string]interface{})["a"],
		"the prior shadow value must remain untouched by a later merge")
	assert.Equal(t, 2.0, next.State.Reported.(map[string]interface{})["nested"].(map[string]interface{})["a"])
}

func TestDeltaOnlyContainsUnresolvedDesiredKeys(t *testing.T) {
	e := New()
	s := model.NewShadow("dev-1", model.Default, model.Default)
	s, err := e.Update(s, update("dev-1", model.StateDocument{
		Reported: map[string]interface{}{"a": 1.0, "b": 2.0},
		Desired:  map[string]interface{}{"a": 1.0, "b": 9.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"b": 9.0}, s.State.Delta)
}
