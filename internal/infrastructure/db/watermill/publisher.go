package watermilldb

import (
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	log "github.com/sirupsen/logrus"
)

const defaultBufferSize = 64

// NewGoChannelPublisher returns an in-process publisher, messages published
// before anyone subscribes are dropped.
func NewGoChannelPublisher(bufferSize int64) *gochannel.GoChannel {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: bufferSize},
		NewLogrusAdapter(log.StandardLogger()),
	)
}

// NewPostgresPublisher persists messages into per-topic postgres tables.
func NewPostgresPublisher(db *sql.DB) (message.Publisher, error) {
	publisher, err := watermillsql.NewPublisher(
		db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		NewLogrusAdapter(log.StandardLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres publisher: %w", err)
	}
	return publisher, nil
}

type logrusAdapter struct {
	logger *log.Entry
}

// NewLogrusAdapter routes watermill logs through logrus.
func NewLogrusAdapter(logger *log.Logger) watermill.LoggerAdapter {
	return &logrusAdapter{log.NewEntry(logger).WithField("component", "watermill")}
}

func (l *logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.WithFields(log.Fields(fields)).WithError(err).Error(msg)
}

func (l *logrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.logger.WithFields(log.Fields(fields)).Info(msg)
}

func (l *logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.logger.WithFields(log.Fields(fields)).Debug(msg)
}

func (l *logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.logger.WithFields(log.Fields(fields)).Trace(msg)
}

func (l *logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrusAdapter{l.logger.WithFields(log.Fields(fields))}
}
