package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/upe-portal/interview-relay/internal/app"
	"github.com/upe-portal/interview-relay/internal/config"
)

type fakePublisher struct {
	mu         sync.Mutex
	recs       []Record
	closed     bool
	afterClose int
}

// Publish fails like a real sink would once ctx is done.
func (p *fakePublisher) Publish(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.afterClose++
	}
	p.recs = append(p.recs, rec)
	return nil
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recs)
}

func activity(kind app.ActivityKind) app.Activity {
	return app.Activity{Kind: kind, Room: "abc123", Connection: "conn-1", At: time.Unix(1700000000, 0)}
}

func TestAsync_DropsWhenBufferFull(t *testing.T) {
	req := require.New(t)
	pub := &fakePublisher{}
	a := NewAsync(pub, 1, time.Second)

	// Given nobody drains the buffer
	a.Observe(activity(app.ActivityJoined))
	a.Observe(activity(app.ActivityProblemChanged))

	// Then the second record is lost
	req.Equal(int64(1), a.Dropped())

	// When the worker starts, the buffered record is published
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	req.Eventually(func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	req.NoError(a.Close())
	req.True(pub.closed)
	req.Equal(app.ActivityJoined, pub.recs[0].Type)
}

func TestAsync_FlushesBufferedRecordsOnShutdown(t *testing.T) {
	for i := 0; i < 20; i++ {
		req := require.New(t)
		pub := &fakePublisher{}
		a := NewAsync(pub, 16, time.Second)

		// Given records observed while the process is shutting down
		for j := 0; j < 5; j++ {
			a.Observe(activity(app.ActivityDisconnected))
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// When the worker sees a canceled context and the exporter is closed
		a.Start(ctx)
		req.NoError(a.Close())

		// Then every buffered record was published before the sink closed
		req.Equal(5, pub.count())
		req.Zero(pub.afterClose)
		req.Zero(a.Dropped())
	}
}

func TestAsync_CloseWithoutStart(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAsync(pub, 4, time.Second)

	require.NoError(t, a.Close())
	require.True(t, pub.closed)
}

func TestRecordOf(t *testing.T) {
	act := activity(app.ActivityProblemChanged)
	act.ProblemKey = "two-sum"

	rec := RecordOf(act)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "problem_changed",
		"room_id": "abc123",
		"connection_id": "conn-1",
		"problem_key": "two-sum",
		"at": "2023-11-14T22:13:20Z"
	}`, string(data))
}

type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error { return nil }

func TestKafkaSink_KeysByRoom(t *testing.T) {
	req := require.New(t)
	w := &fakeKafkaWriter{}
	sink := &KafkaSink{w: w}

	req.NoError(sink.Publish(context.Background(), RecordOf(activity(app.ActivityInterviewClosed))))

	req.Len(w.msgs, 1)
	req.Equal([]byte("abc123"), w.msgs[0].Key)
	req.Equal("type", w.msgs[0].Headers[0].Key)
	req.Equal([]byte("interview_closed"), w.msgs[0].Headers[0].Value)

	var rec Record
	req.NoError(json.Unmarshal(w.msgs[0].Value, &rec))
	req.Equal(app.ActivityInterviewClosed, rec.Type)
}

func TestKafkaSink_NoRoomNoKey(t *testing.T) {
	msg, err := kafkaMessage(Record{Type: app.ActivityDisconnected, ConnectionID: "c"})
	require.NoError(t, err)
	require.Nil(t, msg.Key)
}

func TestKafkaSink_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	sink := &KafkaSink{w: &fakeKafkaWriter{err: boom}}

	err := sink.Publish(context.Background(), RecordOf(activity(app.ActivityJoined)))
	require.ErrorIs(t, err, boom)
}

type fakeRedis struct {
	channels []string
	payloads []string
	err      error
}

func (r *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if r.err != nil {
		return redis.NewIntResult(0, r.err)
	}
	r.channels = append(r.channels, channel)
	r.payloads = append(r.payloads, string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (r *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", r.err)
}

func (r *fakeRedis) Close() error { return nil }

func TestRedisSink_PublishesOnRoomChannel(t *testing.T) {
	req := require.New(t)
	client := &fakeRedis{}
	sink := &RedisSink{client: client, prefix: "interview:"}

	req.NoError(sink.Publish(context.Background(), RecordOf(activity(app.ActivityJoined))))
	req.NoError(sink.Ping(context.Background()))

	req.Equal([]string{"interview:abc123"}, client.channels)
	req.Contains(client.payloads[0], `"type":"joined"`)
}

func TestRedisSink_SkipsRecordsWithoutRoom(t *testing.T) {
	client := &fakeRedis{}
	sink := &RedisSink{client: client, prefix: "interview:"}

	require.NoError(t, sink.Publish(context.Background(), Record{Type: app.ActivityDisconnected, ConnectionID: "c"}))
	require.Empty(t, client.channels)
}

func TestRedisSink_WrapsError(t *testing.T) {
	boom := errors.New("connection refused")
	sink := &RedisSink{client: &fakeRedis{err: boom}, prefix: "p:"}

	require.ErrorIs(t, sink.Publish(context.Background(), RecordOf(activity(app.ActivityJoined))), boom)
	require.ErrorIs(t, sink.Ping(context.Background()), boom)
}

func TestNewPublisher(t *testing.T) {
	req := require.New(t)

	pub, err := NewPublisher(config.AuditConfig{Driver: "none"})
	req.NoError(err)
	req.Nil(pub)

	pub, err = NewPublisher(config.AuditConfig{Driver: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}})
	req.NoError(err)
	req.IsType(&KafkaSink{}, pub)
	req.NoError(pub.Close())

	pub, err = NewPublisher(config.AuditConfig{Driver: "redis", Redis: config.RedisConfig{Addr: "localhost:6379"}})
	req.NoError(err)
	req.IsType(&RedisSink{}, pub)
	req.NoError(pub.Close())

	_, err = NewPublisher(config.AuditConfig{Driver: "carrier-pigeon"})
	req.Error(err)
}
