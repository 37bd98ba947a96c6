package kafka_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"gradebook/common/logger"
	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/events"
	"gradebook/internal/kafka"
	"gradebook/internal/mark"
	"gradebook/internal/metrics"
	"gradebook/internal/student"
	"gradebook/internal/subject"
	"gradebook/testing/testdb"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer(t *testing.T) {
	log := logger.Discard()
	event := events.NewMarkEvent(events.MarkUpdated, "api", events.MarkPayload{ID: 3, StudentID: 12, Grade: "A"})

	t.Run("Publish_SendsJSONEvent", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, kafka.NewConfig())
		sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
			var got events.MarkEvent
			if err := json.Unmarshal(value, &got); err != nil {
				return err
			}
			if got.ID != event.ID || got.Kind != events.MarkUpdated || got.Mark.StudentID != 12 {
				return fmt.Errorf("unexpected event %+v", got)
			}
			return nil
		})

		producer := kafka.NewProducerWith(sp, "marks.events", log, commonmetrics.NewMock())
		require.NoError(t, producer.Publish(context.Background(), event))
		require.NoError(t, producer.Close())
	})

	t.Run("Publish_ReturnsBrokerError", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, kafka.NewConfig())
		sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		producer := kafka.NewProducerWith(sp, "marks.events", log, commonmetrics.NewMock())
		err := producer.Publish(context.Background(), event)
		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		require.NoError(t, producer.Close())
	})
}

func TestConsumerGroupHandler(t *testing.T) {
	db := testdb.SQLite(t)
	ctx := context.Background()

	students := student.NewService(student.NewRepository(db, commonmetrics.NewMock()))
	subjects := subject.NewService(subject.NewRepository(db, commonmetrics.NewMock()))
	marks := mark.NewService(mark.NewRepository(db, commonmetrics.NewMock()), students, subjects, nil, logger.Discard())

	s, err := students.CreateStudent(ctx, student.Request{Name: "Asha Rao", Class: "10", Section: "A", DateOfBirth: "2010-03-15"})
	require.NoError(t, err)
	sub, err := subjects.CreateSubject(ctx, subject.Request{Name: "Mathematics"})
	require.NoError(t, err)

	handler := &kafka.ConsumerGroupHandler{
		Recorder: marks,
		Logger:   logger.Discard(),
		Metrics:  commonmetrics.NewMock(),
		Counters: metrics.NewMock(),
	}

	submission := func(studentID int, obtained float64) []byte {
		data, err := json.Marshal(events.MarkSubmission{
			StudentID:      studentID,
			SubjectID:      sub.ID,
			MarksObtained:  obtained,
			AssessmentDate: "2024-05-01",
			AssessmentType: "Quiz",
		})
		require.NoError(t, err)
		return data
	}

	t.Run("ConsumeClaim_RecordsMarks", func(t *testing.T) {
		session := newMockSession()
		claim := &mockConsumerGroupClaim{
			messages: []*sarama.ConsumerMessage{
				{Topic: "marks.ingest", Partition: 0, Offset: 0, Value: submission(s.ID, 72), Timestamp: time.Now()},
				{Topic: "marks.ingest", Partition: 0, Offset: 1, Value: submission(s.ID, 48), Timestamp: time.Now()},
			},
		}

		require.NoError(t, handler.ConsumeClaim(session, claim))
		assert.Len(t, session.MarkedMessages, 2)

		stored, err := marks.GetAllMarks(ctx, mark.Filter{StudentID: s.ID})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "Quiz", stored[0].AssessmentType)
		assert.Equal(t, 100.0, stored[0].MaxMarks)
	})

	t.Run("ConsumeClaim_MarksRejectedSubmissions", func(t *testing.T) {
		session := newMockSession()
		claim := &mockConsumerGroupClaim{
			messages: []*sarama.ConsumerMessage{
				{Topic: "marks.ingest", Partition: 1, Offset: 0, Value: []byte("invalid json")},
				{Topic: "marks.ingest", Partition: 1, Offset: 1, Value: submission(9999, 50)},
				{Topic: "marks.ingest", Partition: 1, Offset: 2, Value: submission(s.ID, 150)},
			},
		}

		require.NoError(t, handler.ConsumeClaim(session, claim))
		assert.Len(t, session.MarkedMessages, 3)

		stored, err := marks.GetAllMarks(ctx, mark.Filter{StudentID: s.ID})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("ConsumeClaim_EmptyMessages", func(t *testing.T) {
		session := newMockSession()
		claim := &mockConsumerGroupClaim{}

		require.NoError(t, handler.ConsumeClaim(session, claim))
		assert.Empty(t, session.MarkedMessages)
	})
}

func newMockSession() *mockConsumerGroupSession {
	return &mockConsumerGroupSession{
		MarkedMessages: make(map[string]bool),
	}
}

type mockConsumerGroupSession struct {
	MarkedMessages map[string]bool
}

func (m *mockConsumerGroupSession) Claims() map[string][]int32 {
	return nil
}

func (m *mockConsumerGroupSession) MemberID() string {
	return "test-member"
}

func (m *mockConsumerGroupSession) GenerationID() int32 {
	return 1
}

func (m *mockConsumerGroupSession) MarkOffset(_ string, _ int32, _ int64, _ string) {}

func (m *mockConsumerGroupSession) ResetOffset(_ string, _ int32, _ int64, _ string) {}

func (m *mockConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	key := fmt.Sprintf("%d:%d", msg.Partition, msg.Offset)
	m.MarkedMessages[key] = true
}

func (m *mockConsumerGroupSession) Commit() {}

func (m *mockConsumerGroupSession) Context() context.Context {
	return context.Background()
}

type mockConsumerGroupClaim struct {
	messages []*sarama.ConsumerMessage
}

func (m *mockConsumerGroupClaim) Topic() string {
	return "marks.ingest"
}

func (m *mockConsumerGroupClaim) Partition() int32 {
	return 0
}

func (m *mockConsumerGroupClaim) InitialOffset() int64 {
	return 0
}

func (m *mockConsumerGroupClaim) HighWaterMarkOffset() int64 {
	return int64(len(m.messages))
}

func (m *mockConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	ch := make(chan *sarama.ConsumerMessage)
	go func() {
		defer close(ch)
		for _, msg := range m.messages {
			ch <- msg
		}
	}()
	return ch
}
