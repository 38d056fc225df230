package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/config"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	root := t.TempDir()
	s := config.Default()
	s.ScriptsDir = filepath.Join(root, "scripts")
	s.ImagesDir = filepath.Join(root, "images")
	s.ADB.Binary = filepath.Join(root, "no-such-adb")
	return s
}

func TestNewLogger_FeedsBuffer(t *testing.T) {
	var out bytes.Buffer
	buf := logging.NewBuffer(5)
	logger := NewLogger(&out, "warn", buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
	require.Len(t, buf.Entries(), 1)
	assert.Equal(t, "shown", buf.Entries()[0].Message)
}

func TestOpenStores(t *testing.T) {
	s := testSettings(t)
	st, err := OpenStores(s, logging.NewNop())
	require.NoError(t, err)
	assert.Same(t, st.Files, st.Scripts)
	assert.Nil(t, st.Redis)

	mr := miniredis.RunT(t)
	s.Redis.Addr = mr.Addr()
	st, err = OpenStores(s, logging.NewNop())
	require.NoError(t, err)
	require.NotNil(t, st.Redis)
	assert.Same(t, st.Redis, st.Scripts)
	assert.NotNil(t, st.Files, "templates still resolve from disk")
	require.NoError(t, st.Redis.Close())
}

func TestOpenStores_EncryptedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s := testSettings(t)
	s.Redis.Addr = mr.Addr()
	s.Redis.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	st, err := OpenStores(s, logging.NewNop())
	require.NoError(t, err)
	defer st.Redis.Close()

	ctx := context.Background()
	graph := []byte(`{"actions":[{"id":"1","type":"start"}]}`)
	require.NoError(t, st.Scripts.Save(ctx, "farm", graph))

	raw, err := st.Redis.Load(ctx, "farm")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "start")

	plain, err := st.Scripts.Load(ctx, "farm")
	require.NoError(t, err)
	assert.JSONEq(t, string(graph), string(plain))

	s.Redis.EncryptionKey = "short"
	_, err = OpenStores(s, logging.NewNop())
	assert.ErrorContains(t, err, "encryption_key")
}

func TestNewApp_RunsStoredScript(t *testing.T) {
	s := testSettings(t)
	var logs bytes.Buffer
	app, err := NewApp(context.Background(), s, AppOptions{LogOutput: &logs, Logs: logging.NewBuffer(0)})
	require.NoError(t, err)
	defer app.Close()

	assert.Contains(t, logs.String(), "Device not connected")

	require.NoError(t, os.MkdirAll(filepath.Join(s.ScriptsDir, "noop"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.ScriptsDir, "noop", "script.json"),
		[]byte(`{"nodes":[{"id":1,"type":"bot/start"}],"links":[]}`), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := RunScript(ctx, app, "noop")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, info.Status)
	assert.NotEmpty(t, app.Logs.Lines())

	_, err = RunScript(ctx, app, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestNewApp_WithRedisLease(t *testing.T) {
	mr := miniredis.RunT(t)
	s := testSettings(t)
	s.Redis.Addr = mr.Addr()

	app, err := NewApp(context.Background(), s, AppOptions{LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Stores.Scripts.Save(context.Background(), "noop",
		[]byte(`{"nodes":[{"id":1,"type":"bot/start"}],"links":[]}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := RunScript(ctx, app, "noop")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, info.Status)
	assert.False(t, mr.Exists("bbscript:lock:"+app.Device.Address()), "lease released after the run")
}

func TestConnectMessaging_NothingConfigured(t *testing.T) {
	app, err := NewApp(context.Background(), testSettings(t), AppOptions{LogOutput: &bytes.Buffer{}, Messaging: true})
	require.NoError(t, err)
	defer app.Close()

	assert.Empty(t, app.Messengers.Names())
	assert.ErrorIs(t, <-app.Messengers.SendDirectMessage(context.Background(), "hi"), ErrNoMessenger)
}
