package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func inspectPayload(name, status string) map[string]any {
	return map[string]any{
		"Id":   "abc123",
		"Name": name,
		"State": map[string]any{
			"Status":  status,
			"Running": status == "running",
			"Pid":     float64(4242),
		},
		"Config": map[string]any{
			"Labels": map[string]any{
				"hostkeeper.resource.type": "application",
				"hostkeeper.resource.id":   "app-1",
			},
		},
	}
}

func TestContainerRecordGet(t *testing.T) {
	r := NewContainerRecord(inspectPayload("/web", "running"))

	tests := []struct {
		name  string
		path  string
		want  string
		found bool
	}{
		{name: "top level", path: "Name", want: "/web", found: true},
		{name: "nested", path: "State.Status", want: "running", found: true},
		{name: "bool formatted", path: "State.Running", want: "true", found: true},
		{name: "number formatted", path: "State.Pid", want: "4242", found: true},
		{name: "object yields empty", path: "State", want: "", found: true},
		{name: "missing leaf", path: "State.ExitCode", want: "", found: false},
		{name: "path through scalar", path: "Name.First", want: "", found: false},
		{name: "empty path", path: "", want: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found := r.Get(tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, r.String(tt.path))
		})
	}
}

func TestContainerRecordZeroValue(t *testing.T) {
	var r ContainerRecord

	assert.Equal(t, "", r.Name())
	assert.Equal(t, "", r.Status())
	assert.Nil(t, r.Labels())
}

func TestContainerRecordLabels(t *testing.T) {
	r := NewContainerRecord(inspectPayload("/web", "running"))
	assert.Equal(t, "app-1", r.Labels()["hostkeeper.resource.id"])

	svc := NewContainerRecord(map[string]any{
		"Spec": map[string]any{
			"Name":   "stack_web",
			"Labels": map[string]any{"hostkeeper.resource.id": "svc-1"},
		},
	})
	assert.Equal(t, "stack_web", svc.SpecName())
	assert.Equal(t, "svc-1", svc.Labels()["hostkeeper.resource.id"])
}

func TestSnapshotFirst(t *testing.T) {
	snap := ContainerSnapshot{
		NewContainerRecord(inspectPayload("/db", "running")),
		NewContainerRecord(inspectPayload("/proxy", "exited")),
		NewContainerRecord(inspectPayload("/proxy", "running")),
	}

	r, ok := snap.First(NameEquals("/proxy"))
	assert.True(t, ok)
	assert.Equal(t, "exited", r.Status(), "first match wins")

	_, ok = snap.First(NameEquals("/missing"))
	assert.False(t, ok)

	_, ok = snap.First(SpecNameEquals("/proxy"))
	assert.False(t, ok)

	assert.False(t, snap.Empty())
	assert.True(t, ContainerSnapshot(nil).Empty())
}
