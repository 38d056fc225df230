package runtime_test

import (
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordSend(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordSend, Properties: props("message", "farm done"), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Equal(t, []sentMessage{{Text: "farm done"}}, h.messenger.Sent())
	assert.Equal(t, []int{3}, h.device.Keys())
}

func TestDiscordSend_TimeoutDoesNotAbort(t *testing.T) {
	h := newHarness(t, runtime.WithMessageTimeouts(20*time.Millisecond, 20*time.Millisecond))
	h.messenger.hang = true
	h.device.shot = []byte{0x89, 'P', 'N', 'G'}

	began := time.Now()
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordSend, Properties: props("message", "hello"), Next: "3"},
		{ID: "3", Kind: domain.KindDiscordScreenshot, Next: "4"},
		{ID: "4", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Len(t, h.messenger.Sent(), 2)
	assert.Equal(t, []int{3}, h.device.Keys())
	assert.Less(t, time.Since(began), time.Second)
}

func TestDiscordScreenshot(t *testing.T) {
	h := newHarness(t)
	h.device.shot = []byte{1, 2, 3}

	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordScreenshot, Properties: props("message", "status"), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Equal(t, []sentMessage{{Text: "status", Image: []byte{1, 2, 3}, Filename: runtime.DefaultScreenshotAttachment}}, h.messenger.Sent())
}

func TestDiscordScreenshot_CaptureFailureSkipsSend(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordScreenshot, Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Empty(t, h.messenger.Sent())
	assert.Equal(t, []int{3}, h.device.Keys())
}
