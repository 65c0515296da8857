package compliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
)

func TestMatchBaselinesCaseInsensitiveGlob(t *testing.T) {
	api := newFakeAPI()
	api.baselines = []vsphere.Baseline{
		{ID: "bl-1", Name: "Critical Host Patches (Predefined)"},
		{ID: "bl-2", Name: "Non-Critical Host Patches (Predefined)"},
		{ID: "bl-3", Name: "Custom Firmware Baseline"},
	}

	tr := NewTrigger(api, testLogger())
	matched, err := tr.MatchBaselines(context.Background(), []string{"*critical host patches*"})
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "bl-1", matched[0].ID)
	assert.Equal(t, "bl-2", matched[1].ID)
}

func TestMatchBaselinesNoMatchIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.baselines = []vsphere.Baseline{{ID: "bl-1", Name: "Custom Firmware Baseline"}}

	tr := NewTrigger(api, testLogger())
	_, err := tr.MatchBaselines(context.Background(), []string{"*Host Patches*"})
	require.ErrorIs(t, err, vsphere.ErrBaselineNotFound)
}

func TestMatchBaselinesDefaultPatterns(t *testing.T) {
	api := newFakeAPI()
	api.baselines = []vsphere.Baseline{
		{ID: "bl-1", Name: "Critical Host Patches (Predefined)"},
	}

	tr := NewTrigger(api, testLogger())
	matched, err := tr.MatchBaselines(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestTriggerOneScanPerSource(t *testing.T) {
	api := newFakeAPI()
	targets := []models.Target{
		{Name: "esx-01.lab", Source: "group:prod"},
		{Name: "esx-02.lab", Source: "group:prod"},
		{Name: "esx-03.lab", Source: "host"},
	}
	baselines := []vsphere.Baseline{{ID: "bl-1", Name: "Critical Host Patches"}}

	tr := NewTrigger(api, testLogger())
	handles, err := tr.Run(context.Background(), targets, baselines)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	assert.Equal(t, "group:prod", handles[0].Source)
	assert.Equal(t, []string{"esx-01.lab", "esx-02.lab"}, handles[0].Hosts)
	assert.Equal(t, "host", handles[1].Source)
	assert.Equal(t, []string{"esx-03.lab"}, handles[1].Hosts)

	for _, tgt := range targets {
		assert.Equal(t, []string{"bl-1"}, api.attachCalls[tgt.Name])
	}
}
