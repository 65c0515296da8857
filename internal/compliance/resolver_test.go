package compliance

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/internal/vsphere"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestResolveGroupsSortedAndDeduped(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{Name: "esx-03.lab", State: "connected"}, "prod", "dmz")
	api.addHost(vsphere.HostSummary{Name: "esx-01.lab", State: "connected"}, "prod")
	api.addHost(vsphere.HostSummary{Name: "esx-02.lab", State: "maintenance"}, "dmz")

	r := NewResolver(api, testLogger(), nil)
	targets, err := r.Resolve(context.Background(), Filter{Groups: []string{"prod", "dmz"}})
	require.NoError(t, err)

	names := make([]string, 0, len(targets))
	for _, tgt := range targets {
		names = append(names, tgt.Name)
	}
	assert.Equal(t, []string{"esx-01.lab", "esx-02.lab", "esx-03.lab"}, names)
}

func TestResolveUnknownNamesSkipped(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{Name: "esx-01.lab", State: "connected"}, "prod")

	r := NewResolver(api, testLogger(), nil)
	targets, err := r.Resolve(context.Background(), Filter{
		Groups: []string{"prod", "no-such-group"},
		Hosts:  []string{"no-such-host"},
	})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "esx-01.lab", targets[0].Name)
}

func TestResolveEmptyFilter(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{Name: "esx-01.lab", State: "connected"})

	r := NewResolver(api, testLogger(), nil)
	targets, err := r.Resolve(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, targets)
	assert.True(t, Filter{}.IsZero())
}

func TestResolveAll(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{Name: "esx-02.lab", State: "disconnected"})
	api.addHost(vsphere.HostSummary{Name: "esx-01.lab", State: "connected"})

	r := NewResolver(api, testLogger(), nil)
	targets, err := r.Resolve(context.Background(), Filter{All: true})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "esx-01.lab", targets[0].Name)
	assert.Equal(t, "esx-02.lab", targets[1].Name)
	assert.False(t, targets[1].State.Eligible())
}
