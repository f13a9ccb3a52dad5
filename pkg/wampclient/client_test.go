package wampclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wampd/wampd/pkg/wampclient"
	"github.com/wampd/wampd/pkg/wampcore/realm"
	"github.com/wampd/wampd/pkg/wampcore/router"
	"github.com/wampd/wampd/pkg/wampcore/trie"
)

func newTestServer(t *testing.T, realmNames ...string) string {
	t.Helper()
	table := realm.NewTable()
	for _, name := range realmNames {
		_, err := table.AddRealm(name)
		require.NoError(t, err)
	}
	table.Seal()

	r := router.New(table, nil)
	srv := httptest.NewServer(http.HandlerFunc(r.ServeHTTP))
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[len("http"):]
}

func TestSession_PubSubRoundTrip(t *testing.T) {
	url := newTestServer(t, "realm1")
	ctx := context.Background()

	sub, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)
	pub, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)

	received := make(chan []interface{}, 1)
	_, err = sub.Subscribe("com.x.t", trie.Strict, func(args []interface{}, kwargs map[string]interface{}) {
		received <- args
	})
	require.NoError(t, err)

	_, err = pub.Publish("com.x.t", []interface{}{int64(5)}, nil, false)
	require.NoError(t, err)

	select {
	case args := <-received:
		require.Equal(t, []interface{}{int64(5)}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestSession_RPCSuccess(t *testing.T) {
	url := newTestServer(t, "realm1")
	ctx := context.Background()

	callee, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)
	caller, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)

	_, err = callee.Register("com.add", trie.Strict, wampclient.Single, func(args []interface{}, kwargs map[string]interface{}) ([]interface{}, map[string]interface{}, error) {
		a := args[0].(int64)
		b := args[1].(int64)
		return []interface{}{a + b}, nil, nil
	})
	require.NoError(t, err)

	resultArgs, _, err := caller.Call("com.add", []interface{}{int64(2), int64(3)}, nil)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(5)}, resultArgs)
}

func TestSession_DuplicateRegistrationReturnsRemoteError(t *testing.T) {
	url := newTestServer(t, "realm1")
	ctx := context.Background()

	a, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)
	b, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)

	handler := func(args []interface{}, kwargs map[string]interface{}) ([]interface{}, map[string]interface{}, error) {
		return nil, nil, nil
	}
	_, err = a.Register("com.add", trie.Strict, wampclient.Single, handler)
	require.NoError(t, err)

	_, err = b.Register("com.add", trie.Strict, wampclient.Single, handler)
	require.Error(t, err)
	remote, ok := err.(*wampclient.RemoteError)
	require.True(t, ok)
	require.Equal(t, "wamp.error.procedure_already_exists", remote.Reason)
}

func TestSession_ShutdownHandshake(t *testing.T) {
	url := newTestServer(t, "realm1")
	ctx := context.Background()

	s, err := wampclient.Connect(ctx, url, "realm1", nil)
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))
}
