package messaging_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"gradebook/common/logger"
	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/events"
	"gradebook/internal/messaging"
	"gradebook/internal/metrics"
	"gradebook/testing/testnats"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu   sync.Mutex
	subs []events.MarkSubmission
	err  error
}

func (f *fakeRecorder) RecordSubmission(_ context.Context, sub events.MarkSubmission, source string) error {
	if source != "nats" {
		return fmt.Errorf("unexpected source %q", source)
	}
	if sub.StudentID <= 0 {
		return fmt.Errorf("%w: student_id is required", events.ErrRejected)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeRecorder) recorded() []events.MarkSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.MarkSubmission(nil), f.subs...)
}

func startConsumer(t *testing.T, consumer *messaging.Consumer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = consumer.Close()
	})
	require.Eventually(t, func() bool { return consumer.HealthCheck() == nil }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
}

func TestNATSIntegration(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	log := logger.Discard()

	t.Run("Producer_PublishesMarkEvent", func(t *testing.T) {
		received := natsContainer.Collect(t, "test.marks.events")

		producer, err := messaging.NewProducer(natsContainer.URL, "test.marks.events", log, commonmetrics.NewMock())
		require.NoError(t, err)
		defer producer.Close()
		require.NoError(t, producer.HealthCheck())

		event := events.NewMarkEvent(events.MarkRecorded, "api", events.MarkPayload{
			ID: 7, StudentID: 1, SubjectID: 2, MarksObtained: 65, MaxMarks: 100, Percentage: 65, Grade: "B",
		})
		require.NoError(t, producer.Publish(context.Background(), event))

		select {
		case msg := <-received:
			assert.Equal(t, event.ID, msg.Header.Get(nats.MsgIdHdr))
			assert.Equal(t, "mark.recorded", msg.Header.Get("Gradebook-Kind"))

			var got events.MarkEvent
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, event.ID, got.ID)
			assert.Equal(t, 7, got.Mark.ID)
			assert.Equal(t, "B", got.Mark.Grade)
		case <-time.After(5 * time.Second):
			t.Fatal("mark event not received")
		}
	})

	t.Run("Consumer_RecordsSubmission", func(t *testing.T) {
		subject := "test.marks.ingest.record"
		recorder := &fakeRecorder{}
		consumer, err := messaging.NewConsumer(natsContainer.URL, subject, recorder, log, commonmetrics.NewMock(), metrics.NewMock())
		require.NoError(t, err)
		startConsumer(t, consumer)

		conn := natsContainer.Connect(t)
		data, err := json.Marshal(events.MarkSubmission{
			SubmissionID: "sub-1", StudentID: 3, SubjectID: 4, MarksObtained: 72, AssessmentDate: "2024-05-01",
		})
		require.NoError(t, err)
		require.NoError(t, conn.Publish(subject, data))

		require.Eventually(t, func() bool { return len(recorder.recorded()) == 1 }, 5*time.Second, 20*time.Millisecond)
		got := recorder.recorded()[0]
		assert.Equal(t, "sub-1", got.SubmissionID)
		assert.Equal(t, 3, got.StudentID)
		assert.Equal(t, 72.0, got.MarksObtained)
	})

	t.Run("Consumer_RepliesToRequests", func(t *testing.T) {
		subject := "test.marks.ingest.reply"
		recorder := &fakeRecorder{}
		consumer, err := messaging.NewConsumer(natsContainer.URL, subject, recorder, log, commonmetrics.NewMock(), metrics.NewMock())
		require.NoError(t, err)
		startConsumer(t, consumer)

		conn := natsContainer.Connect(t)

		msg, err := conn.Request(subject, []byte(`{"student_id": 1, "subject_id": 1, "marks_obtained": 50, "assessment_date": "2024-05-01"}`), 5*time.Second)
		require.NoError(t, err)
		var reply messaging.Reply
		require.NoError(t, json.Unmarshal(msg.Data, &reply))
		assert.Equal(t, "recorded", reply.Status)

		msg, err = conn.Request(subject, []byte("invalid json"), 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg.Data, &reply))
		assert.Equal(t, "rejected", reply.Status)
		assert.Contains(t, reply.Error, "malformed JSON")

		msg, err = conn.Request(subject, []byte(`{"subject_id": 1}`), 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg.Data, &reply))
		assert.Equal(t, "rejected", reply.Status)

		recorder.mu.Lock()
		recorder.err = fmt.Errorf("database unavailable")
		recorder.mu.Unlock()

		msg, err = conn.Request(subject, []byte(`{"student_id": 2, "subject_id": 1}`), 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg.Data, &reply))
		assert.Equal(t, "failed", reply.Status)

		assert.Len(t, recorder.recorded(), 1)
	})

	t.Run("HealthCheck_AfterClose", func(t *testing.T) {
		consumer, err := messaging.NewConsumer(natsContainer.URL, "test.marks.closed", &fakeRecorder{}, log, commonmetrics.NewMock(), metrics.NewMock())
		require.NoError(t, err)
		require.NoError(t, consumer.HealthCheck())

		require.NoError(t, consumer.Close())
		assert.ErrorIs(t, consumer.HealthCheck(), nats.ErrConnectionClosed)
	})
}
