package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// ANSI color codes for log levels
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// Options configures NewLogger.
type Options struct {
	ServiceName  string
	Level        slog.Level
	BufferSize   int
	LogDir       string   // empty disables the file handler
	KafkaBrokers []string // empty disables the Kafka handler
	KafkaTopic   string
	Stdout       io.Writer // defaults to os.Stdout
}

// ParseLevel converts a textual level (debug, info, warn, error) into slog.Level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// attrSet keeps attributes and groups attached with WithAttrs/WithGroup.
type attrSet struct {
	attrs  []slog.Attr
	prefix string
}

func (a attrSet) withAttrs(attrs []slog.Attr) attrSet {
	merged := make([]slog.Attr, 0, len(a.attrs)+len(attrs))
	merged = append(merged, a.attrs...)
	for _, attr := range attrs {
		merged = append(merged, prefixed(a.prefix, attr))
	}
	return attrSet{attrs: merged, prefix: a.prefix}
}

func (a attrSet) withGroup(name string) attrSet {
	if name == "" {
		return a
	}
	return attrSet{attrs: a.attrs, prefix: a.prefix + name + "."}
}

func prefixed(prefix string, attr slog.Attr) slog.Attr {
	if prefix == "" {
		return attr
	}
	return slog.Attr{Key: prefix + attr.Key, Value: attr.Value}
}

// collect returns handler attributes followed by record attributes, flattened.
func (a attrSet) collect(record slog.Record) []slog.Attr {
	out := make([]slog.Attr, 0, len(a.attrs)+record.NumAttrs())
	out = appendFlat(out, "", a.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		out = appendFlat(out, a.prefix, attr)
		return true
	})
	return out
}

func appendFlat(dst []slog.Attr, prefix string, attrs ...slog.Attr) []slog.Attr {
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()
		if attr.Equal(slog.Attr{}) {
			continue
		}
		if attr.Value.Kind() == slog.KindGroup {
			groupPrefix := prefix
			if attr.Key != "" {
				groupPrefix += attr.Key + "."
			}
			dst = appendFlat(dst, groupPrefix, attr.Value.Group()...)
			continue
		}
		dst = append(dst, prefixed(prefix, attr))
	}
	return dst
}

func formatAttrs(attrs []slog.Attr) string {
	if len(attrs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, attr := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(attr.Key)
		sb.WriteByte('=')
		sb.WriteString(fmt.Sprintf("%q", attr.Value.String()))
	}
	return sb.String()
}

// KafkaHandler sends logs to Kafka topic asynchronously.
type KafkaHandler struct {
	core  *kafkaCore
	set   attrSet
	level slog.Leveler
}

type kafkaCore struct {
	producer sarama.AsyncProducer
	topic    string
	service  string
	logChan  chan []byte
	wg       sync.WaitGroup
	quitChan chan struct{}
	once     sync.Once
}

// NewKafkaHandler initializes a new KafkaHandler.
func NewKafkaHandler(brokers []string, topic, serviceName string, bufferSize int, level slog.Leveler) (*KafkaHandler, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create async producer: %w", err)
	}

	return newKafkaHandler(producer, topic, serviceName, bufferSize, level), nil
}

func newKafkaHandler(producer sarama.AsyncProducer, topic, serviceName string, bufferSize int, level slog.Leveler) *KafkaHandler {
	core := &kafkaCore{
		producer: producer,
		topic:    topic,
		service:  serviceName,
		logChan:  make(chan []byte, bufferSize),
		quitChan: make(chan struct{}),
	}

	core.wg.Add(2)
	go core.processLogs()
	go core.handleProducerErrors()

	return &KafkaHandler{core: core, level: level}
}

// kafkaMessage builds the JSON payload for one log record.
func kafkaMessage(service string, record slog.Record, attrs []slog.Attr) ([]byte, error) {
	logEntry := map[string]any{
		"time":    record.Time.Format(time.RFC3339),
		"level":   record.Level.String(),
		"msg":     record.Message,
		"service": service,
	}
	if len(attrs) > 0 {
		fields := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			fields[attr.Key] = attr.Value.String()
		}
		logEntry["attrs"] = fields
	}
	return json.Marshal(logEntry)
}

func (k *kafkaCore) send(payload []byte) {
	k.producer.Input() <- &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(k.service),
		Value: sarama.ByteEncoder(payload),
	}
}

// processLogs forwards queued records to the producer and drains the queue on shutdown.
func (k *kafkaCore) processLogs() {
	defer k.wg.Done()
	for {
		select {
		case payload := <-k.logChan:
			k.send(payload)
		case <-k.quitChan:
			for {
				select {
				case payload := <-k.logChan:
					k.send(payload)
				default:
					return
				}
			}
		}
	}
}

// handleProducerErrors processes producer errors.
func (k *kafkaCore) handleProducerErrors() {
	defer k.wg.Done()
	for {
		select {
		case err, ok := <-k.producer.Errors():
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "failed to write message to kafka: %v\n", err)
		case <-k.quitChan:
			return
		}
	}
}

// Enabled checks if the level is enabled.
func (k *KafkaHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= k.level.Level()
}

// Handle serializes the record and queues it for asynchronous delivery.
// Strings passed by the caller may alias reused request buffers, so the
// payload is built before Handle returns.
func (k *KafkaHandler) Handle(_ context.Context, record slog.Record) error {
	payload, err := kafkaMessage(k.core.service, record, k.set.collect(record))
	if err != nil {
		return fmt.Errorf("failed to marshal log record: %w", err)
	}

	select {
	case k.core.logChan <- payload:
	default:
		fmt.Fprintln(os.Stderr, "kafka log channel is full, dropping log message")
	}
	return nil
}

// WithAttrs adds attributes to the handler.
func (k *KafkaHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &KafkaHandler{core: k.core, set: k.set.withAttrs(attrs), level: k.level}
}

// WithGroup adds a group to the handler.
func (k *KafkaHandler) WithGroup(name string) slog.Handler {
	return &KafkaHandler{core: k.core, set: k.set.withGroup(name), level: k.level}
}

// Close gracefully shuts down KafkaHandler.
func (k *KafkaHandler) Close() error {
	var err error
	k.core.once.Do(func() {
		close(k.core.quitChan)
		k.core.wg.Wait()
		if cerr := k.core.producer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close producer: %w", cerr)
		}
	})
	return err
}

// FileHandler saves logs to a file asynchronously.
type FileHandler struct {
	core  *fileCore
	set   attrSet
	level slog.Leveler
}

type fileCore struct {
	file     *os.File
	logChan  chan string
	wg       sync.WaitGroup
	quitChan chan struct{}
	once     sync.Once
}

// NewFileHandler initializes a new FileHandler writing to <dir>/<serviceName>/app.log.
func NewFileHandler(dir, serviceName string, bufferSize int, level slog.Leveler) (*FileHandler, error) {
	logDir := filepath.Join(dir, serviceName)
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	logFilePath := filepath.Join(logDir, "app.log")
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	core := &fileCore{
		file:     file,
		logChan:  make(chan string, bufferSize),
		quitChan: make(chan struct{}),
	}

	core.wg.Add(1)
	go core.processLogs()

	return &FileHandler{core: core, level: level}, nil
}

// processLogs reads formatted lines from a channel and writes them to the file.
func (f *fileCore) processLogs() {
	defer f.wg.Done()
	for {
		select {
		case line := <-f.logChan:
			f.write(line)
		case <-f.quitChan:
			for {
				select {
				case line := <-f.logChan:
					f.write(line)
				default:
					return
				}
			}
		}
	}
}

func (f *fileCore) write(line string) {
	if _, err := f.file.WriteString(line + "\n"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write log line: %v\n", err)
	}
}

// Enabled checks if the level is enabled.
func (f *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= f.level.Level()
}

// Handle formats the record and queues it for the writer goroutine.
func (f *FileHandler) Handle(_ context.Context, record slog.Record) error {
	line := fmt.Sprintf("[%s] - %s - %s%s",
		record.Level.String(),
		record.Time.Format(time.RFC3339),
		record.Message,
		formatAttrs(f.set.collect(record)),
	)

	select {
	case f.core.logChan <- line:
	default:
		fmt.Fprintln(os.Stderr, "file log channel is full, dropping log message")
	}
	return nil
}

// WithAttrs adds attributes to the handler.
func (f *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FileHandler{core: f.core, set: f.set.withAttrs(attrs), level: f.level}
}

// WithGroup adds a group to the handler.
func (f *FileHandler) WithGroup(name string) slog.Handler {
	return &FileHandler{core: f.core, set: f.set.withGroup(name), level: f.level}
}

// Close flushes queued lines and closes the file.
func (f *FileHandler) Close() error {
	var err error
	f.core.once.Do(func() {
		close(f.core.quitChan)
		f.core.wg.Wait()
		err = f.core.file.Close()
	})
	return err
}

// StdoutHandler writes colored lines synchronously.
type StdoutHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	set    attrSet
	level  slog.Leveler
}

// NewStdoutHandler initializes a new StdoutHandler. A nil writer means os.Stdout.
func NewStdoutHandler(w io.Writer, level slog.Leveler) *StdoutHandler {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutHandler{mu: &sync.Mutex{}, writer: w, level: level}
}

// Enabled checks if the level is enabled.
func (s *StdoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

// Handle outputs the record with a level color.
func (s *StdoutHandler) Handle(_ context.Context, record slog.Record) error {
	color := ColorReset
	switch {
	case record.Level >= slog.LevelError:
		color = ColorRed
	case record.Level >= slog.LevelWarn:
		color = ColorYellow
	case record.Level >= slog.LevelInfo:
		color = ColorGreen
	default:
		color = ColorBlue
	}
	line := fmt.Sprintf("%s[%s]%s - %s - %s%s\n",
		color,
		record.Level.String(),
		ColorReset,
		record.Time.Format("2006-01-02 15:04:05"),
		record.Message,
		formatAttrs(s.set.collect(record)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.writer, line)
	return err
}

// WithAttrs adds attributes to the handler.
func (s *StdoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &StdoutHandler{mu: s.mu, writer: s.writer, set: s.set.withAttrs(attrs), level: s.level}
}

// WithGroup adds a group to the handler.
func (s *StdoutHandler) WithGroup(name string) slog.Handler {
	return &StdoutHandler{mu: s.mu, writer: s.writer, set: s.set.withGroup(name), level: s.level}
}

// MultiHandler combines multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler initializes a new MultiHandler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{
		handlers: handlers,
	}
}

// Enabled checks if the level is enabled for any handler.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every handler that accepts its level.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs adds attributes to all handlers.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return NewMultiHandler(handlers...)
}

// WithGroup adds a group to all handlers.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return NewMultiHandler(handlers...)
}

// CloseAll closes all handlers that implement the Close method.
func (m *MultiHandler) CloseAll() {
	for _, h := range m.handlers {
		if closer, ok := h.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to close log handler: %v\n", err)
			}
		}
	}
}

// Close closes the handlers behind a logger built by NewLogger.
func Close(l *slog.Logger) {
	if multiHandler, ok := l.Handler().(*MultiHandler); ok {
		multiHandler.CloseAll()
	}
}

// NewLogger initializes the combined logger: stdout always, file and Kafka when configured.
func NewLogger(opts Options) (*slog.Logger, error) {
	handlers := []slog.Handler{NewStdoutHandler(opts.Stdout, opts.Level)}

	if opts.LogDir != "" {
		fileHandler, err := NewFileHandler(opts.LogDir, opts.ServiceName, opts.BufferSize, opts.Level)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, fileHandler)
	}

	if len(opts.KafkaBrokers) > 0 {
		kafkaHandler, err := NewKafkaHandler(opts.KafkaBrokers, opts.KafkaTopic, opts.ServiceName, opts.BufferSize, opts.Level)
		if err != nil {
			NewMultiHandler(handlers...).CloseAll()
			return nil, err
		}
		handlers = append(handlers, kafkaHandler)
	}

	return slog.New(NewMultiHandler(handlers...)).With(slog.String("service", opts.ServiceName)), nil
}
