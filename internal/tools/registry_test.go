package tools

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCapability(name string) Capability {
	return Capability{
		Info: &schema.ToolInfo{Name: name, Desc: "echo"},
		Handler: func(_ context.Context, argsJSON string) (string, error) {
			return argsJSON, nil
		},
	}
}

func TestRegistryExecuteByName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoCapability("echo")))

	out, err := r.Execute(context.Background(), "echo", `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestRegistryUnknownCapability(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", "{}")
	require.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoCapability("echo")))
	require.Error(t, r.Register(echoCapability("echo")))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryInfosPreserveOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoCapability("first")))
	require.NoError(t, r.Register(echoCapability("second")))

	infos := r.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "first", infos[0].Name)
	assert.Equal(t, "second", infos[1].Name)
}
