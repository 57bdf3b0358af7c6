package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishMarshalsPayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "wallpapers")
	require.NoError(t, err)

	pub := New(client, "wallpapers")
	defer pub.Close()

	id, err := pub.Publish(ctx, "", map[string]string{"category": "mobile"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "mobile", got["category"])
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublishExplicitTopic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "other")
	require.NoError(t, err)

	pub := New(client, "")
	defer pub.Close()

	_, err = pub.Publish(ctx, "other", struct{ N int }{N: 1})
	require.NoError(t, err)
	assert.Len(t, srv.Messages(), 1)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "t").Publish(context.Background(), "", "x")
	assert.Error(t, err)

	client, _ := newTestClient(t)
	pub := New(client, "")
	_, err = pub.Publish(context.Background(), "", "x")
	assert.Error(t, err)

	_, err = pub.Publish(context.Background(), "t", func() {})
	assert.Error(t, err)

	_, err = pub.Publish(context.Background(), "missing-topic", "x")
	assert.Error(t, err)
	pub.Close()
}
